package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urbanbot/server/internal/agent/graph"
	"github.com/urbanbot/server/internal/agent/graph/conversations"
	"github.com/urbanbot/server/internal/agent/model"
	"github.com/urbanbot/server/internal/agent/repo"
	"github.com/urbanbot/server/internal/agent/reports"
	"github.com/urbanbot/server/internal/incident"
	"github.com/urbanbot/server/internal/notify"
	"github.com/urbanbot/server/internal/store"
	logx "github.com/urbanbot/server/pkg/logger"
	"github.com/urbanbot/server/pkg/telemetry"
)

// app is the wired service. Commands build only what they need.
type app struct {
	store    *store.Store
	reports  *reports.Registry
	mailer   notify.Mailer
	manager  *conversations.Manager
	recorder *incident.Recorder
	closers  []func()
}

// newStoreApp opens the store and loads the report registry.
func newStoreApp(ctx context.Context) (*app, error) {
	s, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a := &app{store: s}
	a.closers = append(a.closers, func() {
		if err := s.Close(); err != nil {
			logx.Error().Err(err).Msg("failed to close store")
		}
	})

	reg, err := reports.Default()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.reports = reg
	a.mailer = notify.New(cfg.Email)
	a.recorder = incident.NewRecorder(s, a.mailer)
	return a, nil
}

// newAgentApp additionally wires telemetry, conversation persistence and
// the agent graph.
func newAgentApp(ctx context.Context) (*app, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	ttl, err := time.ParseDuration(cfg.Conversation.TTL)
	if err != nil {
		return nil, fmt.Errorf("invalid CONVERSATION_TTL '%s': %w", cfg.Conversation.TTL, err)
	}

	a, err := newStoreApp(ctx)
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, version)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, shutdown)

	var (
		conversationRepo model.ConversationRepository
		schemas          model.SchemaCache
	)
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.NewContext(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialise Redis client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		conversationRepo = repo.NewRedisConversationRepository(rdb, ttl)
		schemas = repo.NewRedisSchemaCache(rdb, ttl)
		logx.Info().Msg("Connected to Redis successfully")
	} else {
		conversationRepo = repo.NewMemoryConversationRepository()
		schemas = repo.NewMemorySchemaCache()
		logx.Warn().Msg("REDIS_URL not set, conversations are kept in memory")
	}

	runner, err := graph.BuildAgentGraph(ctx, graph.Config{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		SQLModel:     cfg.SQL,
		ChatModel:    cfg.Chat,
		Conversation: cfg.Conversation,
		Store:        a.store,
		Schemas:      schemas,
		Reports:      a.reports,
		Mailer:       a.mailer,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	a.manager = conversations.NewManager(conversationRepo, runner)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
