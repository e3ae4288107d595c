package conversations

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/urbanbot/server/internal/agent/model"
	errx "github.com/urbanbot/server/internal/core/error"
	logx "github.com/urbanbot/server/pkg/logger"
)

// Unavailable is the assistant reply when the agent graph fails.
const Unavailable = "⚠️ UrbanBot AI is unavailable right now. Please try again."

const instrumentationName = "github.com/urbanbot/server/conversations"

// Runner executes one question against a conversation state.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (model.Reply, error)
}

type Manager struct {
	conversationRepo model.ConversationRepository
	runner           Runner
	tracer           trace.Tracer
	dispatches       metric.Int64Counter
}

func NewManager(conversationRepo model.ConversationRepository, runner Runner) *Manager {
	m := &Manager{
		conversationRepo: conversationRepo,
		runner:           runner,
		tracer:           otel.Tracer(instrumentationName),
	}
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"urbanbot.agent.dispatches",
		metric.WithDescription("Questions answered, by agent"),
	)
	if err != nil {
		logx.Warn().Err(err).Msg("dispatch counter unavailable")
	} else {
		m.dispatches = counter
	}
	return m
}

// Start returns the session's conversation, creating it with the greeting
// when the session is new.
func (cm *Manager) Start(ctx context.Context, sessionID string) (model.ConversationState, error) {
	state, err := cm.conversationRepo.LoadState(ctx, sessionID)
	if err != nil {
		return model.ConversationState{}, err
	}
	if len(state.Entries) > 0 {
		return state, nil
	}

	state = model.NewConversationState(sessionID)
	if err := cm.conversationRepo.AppendEntries(ctx, sessionID, state.Entries...); err != nil {
		return model.ConversationState{}, err
	}
	return state, nil
}

// Ask answers one question and persists both the user entry and the reply.
// A graph failure is answered with Unavailable rather than returned.
func (cm *Manager) Ask(ctx context.Context, sessionID, question string) (model.ConversationEntry, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return model.ConversationEntry{}, errx.New(errx.ErrEmptyQuestion, 400, "question is empty")
	}

	ctx, span := cm.tracer.Start(ctx, "conversation.ask", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	state, err := cm.Start(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load conversation")
		return model.ConversationEntry{}, err
	}

	start := time.Now()
	reply, err := cm.runner.Invoke(ctx, model.QueryInput{State: state, Question: question})
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("agent graph failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "agent graph failed")

		now := time.Now().UTC()
		user := model.ConversationEntry{Role: model.RoleUser, Text: question, Timestamp: now}
		entry := model.ConversationEntry{Role: model.RoleAssistant, Text: Unavailable, Agent: model.AgentLLM, Timestamp: now}
		if err := cm.conversationRepo.AppendEntries(ctx, sessionID, user, entry); err != nil {
			return model.ConversationEntry{}, err
		}
		cm.count(ctx, model.AgentLLM, false)
		return entry, nil
	}

	added := newEntries(state, reply.State)
	if err := cm.conversationRepo.AppendEntries(ctx, sessionID, added...); err != nil {
		span.RecordError(err)
		return model.ConversationEntry{}, err
	}

	span.SetAttributes(
		attribute.String("agent", string(reply.Entry.Agent)),
		attribute.Bool("generated_sql", reply.SQL != ""),
	)
	logx.Info().
		Str("session_id", sessionID).
		Str("agent", string(reply.Entry.Agent)).
		Dur("elapsed", time.Since(start)).
		Msg("question answered")
	cm.count(ctx, reply.Entry.Agent, true)
	return reply.Entry, nil
}

// History returns the full conversation of a session.
func (cm *Manager) History(ctx context.Context, sessionID string) (model.ConversationState, error) {
	return cm.Start(ctx, sessionID)
}

// Clear truncates the conversation back to its greeting.
func (cm *Manager) Clear(ctx context.Context, sessionID string) (model.ConversationState, error) {
	state, err := cm.Start(ctx, sessionID)
	if err != nil {
		return model.ConversationState{}, err
	}
	cleared := state.Cleared()
	if err := cm.conversationRepo.ClearHistory(ctx, sessionID); err != nil {
		return model.ConversationState{}, err
	}
	if err := cm.conversationRepo.AppendEntries(ctx, sessionID, cleared.Entries...); err != nil {
		return model.ConversationState{}, err
	}
	return cleared, nil
}

func (cm *Manager) count(ctx context.Context, agent model.AgentTag, ok bool) {
	if cm.dispatches == nil {
		return
	}
	cm.dispatches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent", string(agent)),
		attribute.Bool("ok", ok),
	))
}

// newEntries returns what the graph appended to before.
func newEntries(before, after model.ConversationState) []model.ConversationEntry {
	if len(after.Entries) <= len(before.Entries) {
		return nil
	}
	out := make([]model.ConversationEntry, len(after.Entries)-len(before.Entries))
	copy(out, after.Entries[len(before.Entries):])
	return out
}
