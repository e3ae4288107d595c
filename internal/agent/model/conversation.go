package model

import (
	"context"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// AgentTag names the agent that produced an assistant entry.
type AgentTag string

const (
	AgentLLM    AgentTag = "llm"
	AgentDB     AgentTag = "db"
	AgentReport AgentTag = "report"
	AgentEmail  AgentTag = "email"
)

// Greeting is the first entry of every conversation; Clear keeps only it.
const Greeting = "Hello 👋 I’m UrbanBot AI. Ask me reports or insights."

// ConversationEntry is one line of the chat as shown to the user.
type ConversationEntry struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Agent     AgentTag  `json:"agent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationState is the full chat state of one session. It is passed by
// value into the agent graph and returned with the new entries appended.
type ConversationState struct {
	SessionID string              `json:"session_id"`
	Entries   []ConversationEntry `json:"entries"`
}

// NewConversationState returns a state holding only the greeting.
func NewConversationState(sessionID string) ConversationState {
	return ConversationState{
		SessionID: sessionID,
		Entries:   []ConversationEntry{GreetingEntry()},
	}
}

// GreetingEntry builds the initial assistant entry.
func GreetingEntry() ConversationEntry {
	return ConversationEntry{
		Role:      RoleAssistant,
		Text:      Greeting,
		Agent:     AgentLLM,
		Timestamp: time.Now().UTC(),
	}
}

// Append returns a copy of s with e added at the end.
func (s ConversationState) Append(e ConversationEntry) ConversationState {
	entries := make([]ConversationEntry, len(s.Entries), len(s.Entries)+1)
	copy(entries, s.Entries)
	s.Entries = append(entries, e)
	return s
}

// LastAssistantText returns the text of the most recent assistant entry.
func (s ConversationState) LastAssistantText() (string, bool) {
	for i := len(s.Entries) - 1; i >= 0; i-- {
		if s.Entries[i].Role == RoleAssistant {
			return s.Entries[i].Text, true
		}
	}
	return "", false
}

// Cleared truncates the conversation back to its greeting.
func (s ConversationState) Cleared() ConversationState {
	if len(s.Entries) == 0 {
		return NewConversationState(s.SessionID)
	}
	return ConversationState{SessionID: s.SessionID, Entries: []ConversationEntry{s.Entries[0]}}
}

type ConversationRepository interface {
	// AppendEntries adds entries to the end of the session's conversation
	AppendEntries(ctx context.Context, sessionID string, entries ...ConversationEntry) error

	// LoadState retrieves the conversation of a session; an unknown session has no entries
	LoadState(ctx context.Context, sessionID string) (ConversationState, error)

	// ClearHistory removes all entries of a session
	ClearHistory(ctx context.Context, sessionID string) error

	// GetEntryCount returns the number of entries in the conversation
	GetEntryCount(ctx context.Context, sessionID string) (int, error)
}

// SchemaCache keeps one introspected schema per session.
type SchemaCache interface {
	GetSchema(ctx context.Context, sessionID string) (SchemaDescription, bool, error)
	PutSchema(ctx context.Context, sessionID string, schema SchemaDescription) error
}
