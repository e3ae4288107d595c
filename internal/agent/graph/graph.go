package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/urbanbot/server/internal/agent/graph/nodes"
	"github.com/urbanbot/server/internal/agent/graph/observers"
	"github.com/urbanbot/server/internal/agent/graph/router"
	"github.com/urbanbot/server/internal/agent/model"
	"github.com/urbanbot/server/internal/agent/reports"
	"github.com/urbanbot/server/internal/notify"
	logx "github.com/urbanbot/server/pkg/logger"
)

// Runner executes one question against a conversation state.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (model.Reply, error)
}

// Config holds everything needed to compose the agent graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs the Gemini chat models.
type Config struct {
	APIKey       string
	BaseURL      string
	SQLModel     model.SQLModelConfig
	ChatModel    model.ChatModelConfig
	Conversation model.ConversationConfig
	Store        nodes.Store
	Schemas      model.SchemaCache
	Reports      *reports.Registry
	Mailer       notify.Mailer
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels *nodes.ChatModels
	Store      nodes.Store
	Schemas    model.SchemaCache
	Reports    *reports.Registry
	Mailer     notify.Mailer
	Rules      []router.Rule
	RowLimit   int
}

// GraphBuilder handles the construction of the agent graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, model.Reply]
}

type graphRunner struct {
	runnable compose.Runnable[model.QueryInput, model.Reply]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (model.Reply, error) {
	return r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
}

// BuildAgentGraph creates the chat models, builds the graph, and returns a Runner.
func BuildAgentGraph(ctx context.Context, cfg Config) (Runner, error) {
	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		SQLConfig:  &cfg.SQLModel,
		ChatConfig: &cfg.ChatModel,
	})
	if err != nil {
		return nil, err
	}

	r, err := NewRunner(ctx, &GraphConfig{
		ChatModels: cms,
		Store:      cfg.Store,
		Schemas:    cfg.Schemas,
		Reports:    cfg.Reports,
		Mailer:     cfg.Mailer,
		Rules:      router.DefaultRules(),
		RowLimit:   cfg.Conversation.RowLimit,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Agent graph built successfully")
	return r, nil
}

// NewRunner compiles the graph from already constructed collaborators.
func NewRunner(ctx context.Context, config *GraphConfig) (Runner, error) {
	runnable, err := BuildGraph(ctx, config)
	if err != nil {
		return nil, err
	}
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled agent graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, model.Reply], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.SQL == nil || config.ChatModels.Chat == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.Store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if config.Reports == nil {
		return nil, fmt.Errorf("report registry is nil")
	}
	if config.Mailer == nil {
		return nil, fmt.Errorf("mailer is nil")
	}
	if len(config.Rules) == 0 {
		config.Rules = router.DefaultRules()
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, model.Reply](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	cfg := b.config
	steps := []struct {
		name string
		add  func() error
	}{
		{nodes.NodeInputConverter, func() error {
			return b.graph.AddLambdaNode(nodes.NodeInputConverter,
				nodes.NewInputConverterNode(),
				compose.WithStatePreHandler(nodes.NewInputConverterPreHandler()),
			)
		}},
		{nodes.NodeEmailAgent, func() error {
			return b.graph.AddLambdaNode(nodes.NodeEmailAgent, nodes.NewEmailAgentNode(cfg.Mailer))
		}},
		{nodes.NodeReportAgent, func() error {
			return b.graph.AddLambdaNode(nodes.NodeReportAgent, nodes.NewReportAgentNode(cfg.Reports, cfg.Store))
		}},
		{nodes.NodeDatabaseAgent, func() error {
			return b.graph.AddLambdaNode(nodes.NodeDatabaseAgent, nodes.NewDatabaseAgentNode(nodes.DatabaseAgentConfig{
				Store:     cfg.Store,
				Schemas:   cfg.Schemas,
				Model:     cfg.ChatModels.SQL,
				ModelName: cfg.ChatModels.SQLModelName,
				RowLimit:  cfg.RowLimit,
			}))
		}},
		{nodes.NodeChatPrompt, func() error {
			return b.graph.AddLambdaNode(nodes.NodeChatPrompt, nodes.NewChatPromptNode())
		}},
		{nodes.NodeChatModel, func() error {
			return b.graph.AddChatModelNode(nodes.NodeChatModel, cfg.ChatModels.Chat,
				compose.WithStatePostHandler(nodes.NewChatModelPostHandler(cfg.ChatModels.ChatModelName)),
			)
		}},
		{nodes.NodeChatReply, func() error {
			return b.graph.AddLambdaNode(nodes.NodeChatReply, nodes.NewChatReplyNode())
		}},
		{nodes.NodeFinalizer, func() error {
			return b.graph.AddLambdaNode(nodes.NodeFinalizer, nodes.NewFinalizerNode())
		}},
	}

	for _, s := range steps {
		if err := s.add(); err != nil {
			logx.Error().Err(err).Str("node", s.name).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", s.name, err)
		}
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeInputConverter},
		{nodes.NodeEmailAgent, nodes.NodeFinalizer},
		{nodes.NodeReportAgent, nodes.NodeFinalizer},
		{nodes.NodeDatabaseAgent, nodes.NodeFinalizer},
		{nodes.NodeChatPrompt, nodes.NodeChatModel},
		{nodes.NodeChatModel, nodes.NodeChatReply},
		{nodes.NodeChatReply, nodes.NodeFinalizer},
		{nodes.NodeFinalizer, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches routes the converted input to exactly one agent
func (b *GraphBuilder) addBranches() error {
	agentBranch := compose.NewGraphBranch(
		nodes.NewRouterCondition(b.config.Rules),
		nodes.BranchTargets(),
	)
	if err := b.graph.AddBranch(nodes.NodeInputConverter, agentBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding agent branch")
		return fmt.Errorf("error adding agent branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, model.Reply], error) {
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(20))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
