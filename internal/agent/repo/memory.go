// Package repo persists conversations and per-session schema caches.
package repo

import (
	"context"
	"sync"

	"github.com/urbanbot/server/internal/agent/model"
)

// MemoryConversationRepository is used when no Redis URL is configured.
type MemoryConversationRepository struct {
	mu       sync.RWMutex
	sessions map[string][]model.ConversationEntry
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{sessions: make(map[string][]model.ConversationEntry)}
}

func (r *MemoryConversationRepository) AppendEntries(_ context.Context, sessionID string, entries ...model.ConversationEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = append(r.sessions[sessionID], entries...)
	return nil
}

func (r *MemoryConversationRepository) LoadState(_ context.Context, sessionID string) (model.ConversationState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.sessions[sessionID]
	entries := make([]model.ConversationEntry, len(src))
	copy(entries, src)
	return model.ConversationState{SessionID: sessionID, Entries: entries}, nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *MemoryConversationRepository) GetEntryCount(_ context.Context, sessionID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[sessionID]), nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
