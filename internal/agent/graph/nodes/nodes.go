package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/urbanbot/server/internal/agent/format"
	"github.com/urbanbot/server/internal/agent/graph/parsers"
	"github.com/urbanbot/server/internal/agent/graph/prompts"
	"github.com/urbanbot/server/internal/agent/graph/router"
	"github.com/urbanbot/server/internal/agent/model"
	"github.com/urbanbot/server/internal/agent/reports"
	errx "github.com/urbanbot/server/internal/core/error"
	"github.com/urbanbot/server/internal/notify"
	"github.com/urbanbot/server/internal/sqlguard"
	logx "github.com/urbanbot/server/pkg/logger"
)

const (
	NodeInputConverter = "InputConverter"
	NodeEmailAgent     = "EmailAgent"
	NodeReportAgent    = "ReportAgent"
	NodeDatabaseAgent  = "DatabaseAgent"
	NodeChatPrompt     = "ChatPrompt"
	NodeChatModel      = "ChatModel"
	NodeChatReply      = "ChatReply"
	NodeFinalizer      = "Finalizer"
)

// Agent replies that do not come from a model or the store.
const (
	ReplyNoReport       = "No report yet."
	ReplyEmailSent      = "📧 Email agent sent the report."
	ReplyUnsafeQuery    = "⚠️ Unsafe query blocked."
	EmailSubject        = "UrbanBot Report"
	replyEmailFailedFmt = "⚠️ Email failed: %v"
	replyDBErrorFmt     = "DB error: %v"
)

// Store is what the report and database agents read from.
type Store interface {
	reports.Querier
	Introspect(ctx context.Context) (model.SchemaDescription, error)
}

// agentNodes maps router agents to graph nodes.
var agentNodes = map[model.AgentTag]string{
	model.AgentEmail:  NodeEmailAgent,
	model.AgentReport: NodeReportAgent,
	model.AgentDB:     NodeDatabaseAgent,
	model.AgentLLM:    NodeChatPrompt,
}

// BranchTargets lists every node the router branch may pick.
func BranchTargets() map[string]bool {
	out := make(map[string]bool, len(agentNodes))
	for _, n := range agentNodes {
		out[n] = true
	}
	return out
}

// NewInputConverterPreHandler seeds the invocation state from the input
func NewInputConverterPreHandler() func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		s.Conversation = in.State
		s.Question = strings.TrimSpace(in.Question)
		s.Agent = ""
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewInputConverterNode records the user entry and builds the Turn the
// router and the agents work on.
func NewInputConverterNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.QueryInput) (model.Turn, error) {
		question := strings.TrimSpace(in.Question)
		if question == "" {
			return model.Turn{}, errx.New(errx.ErrEmptyQuestion, 400, "question is empty")
		}

		var turn model.Turn
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
			s.Conversation = s.Conversation.Append(model.ConversationEntry{
				Role:      model.RoleUser,
				Text:      question,
				Timestamp: time.Now().UTC(),
			})
			turn = model.Turn{
				SessionID: s.Conversation.SessionID,
				Question:  question,
				Lowered:   strings.ToLower(question),
				State:     s.Conversation,
			}
			return nil
		})
		if err != nil {
			return model.Turn{}, fmt.Errorf("process state: %w", err)
		}
		return turn, nil
	})
}

// NewRouterCondition dispatches on the first matching rule
func NewRouterCondition(rules []router.Rule) func(context.Context, model.Turn) (string, error) {
	return func(ctx context.Context, turn model.Turn) (string, error) {
		rule := router.Classify(rules, turn.Lowered)
		node, ok := agentNodes[rule.Agent]
		if !ok {
			return "", fmt.Errorf("no node for agent %q", rule.Agent)
		}
		_ = compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
			s.Agent = rule.Agent
			return nil
		})
		logx.Debug().
			Str("session_id", turn.SessionID).
			Str("rule", rule.Name).
			Str("node", node).
			Msg("Routing question")
		return node, nil
	}
}

// NewEmailAgentNode mails the previous assistant reply. A mail failure is
// reported in the conversation, never returned.
func NewEmailAgentNode(mailer notify.Mailer) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, turn model.Turn) (model.Answer, error) {
		body, ok := turn.State.LastAssistantText()
		if !ok {
			return model.Answer{Text: ReplyNoReport, Agent: model.AgentEmail}, nil
		}
		if err := mailer.Send(ctx, EmailSubject, body); err != nil {
			logx.Warn().Err(err).Str("session_id", turn.SessionID).Msg("Email agent failed")
			return model.Answer{Text: fmt.Sprintf(replyEmailFailedFmt, err), Agent: model.AgentEmail}, nil
		}
		return model.Answer{Text: ReplyEmailSent, Agent: model.AgentEmail}, nil
	})
}

// NewReportAgentNode runs the canned report for the first domain named.
func NewReportAgentNode(reg *reports.Registry, db Store) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, turn model.Turn) (model.Answer, error) {
		domain, ok := reg.Match(turn.Lowered)
		if !ok {
			return model.Answer{Text: format.NoRecords, Agent: model.AgentReport}, nil
		}
		res, err := reg.Run(ctx, db, domain)
		if err != nil {
			return model.Answer{Text: fmt.Sprintf(replyDBErrorFmt, err), Agent: model.AgentReport}, nil
		}
		return model.Answer{Text: format.Report(res), Agent: model.AgentReport}, nil
	})
}

// DatabaseAgentConfig wires the generated-query pipeline.
type DatabaseAgentConfig struct {
	Store     Store
	Schemas   model.SchemaCache
	Model     einomodel.BaseChatModel
	ModelName string
	RowLimit  int
}

// NewDatabaseAgentNode turns a question into a guarded query and formats the
// rows. Only a generation failure is returned as an error.
func NewDatabaseAgentNode(cfg DatabaseAgentConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, turn model.Turn) (model.Answer, error) {
		desc, err := loadSchema(ctx, cfg, turn.SessionID)
		if err != nil {
			return model.Answer{Text: fmt.Sprintf(replyDBErrorFmt, err), Agent: model.AgentDB}, nil
		}

		msgs, err := prompts.RenderSQLPrompt(ctx, desc, turn.Question, cfg.RowLimit)
		if err != nil {
			return model.Answer{}, fmt.Errorf("render sql prompt: %w", err)
		}

		out, err := cfg.Model.Generate(ctx, msgs)
		if err != nil {
			logx.Error().Err(err).Str("session_id", turn.SessionID).Msg("SQL generation failed")
			return model.Answer{}, errx.WrapGeneration(err)
		}
		_ = compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
			recordUsage(s, out, cfg.ModelName, NodeDatabaseAgent)
			return nil
		})

		raw := parsers.ExtractSQL(out.Content)
		q, err := sqlguard.FilterWithLimit(raw, cfg.RowLimit)
		if err != nil {
			logx.Warn().Str("session_id", turn.SessionID).Str("raw_sql", preview(raw, 200)).Msg("Generated query rejected")
			return model.Answer{Text: ReplyUnsafeQuery, Agent: model.AgentDB, SQL: raw}, nil
		}

		res, err := cfg.Store.Query(ctx, q)
		if err != nil {
			return model.Answer{Text: fmt.Sprintf(replyDBErrorFmt, err), Agent: model.AgentDB, SQL: q.String()}, nil
		}
		return model.Answer{
			Text:  format.QueryResult(res, format.DetectTitle(turn.Question)),
			Agent: model.AgentDB,
			SQL:   q.String(),
		}, nil
	})
}

func loadSchema(ctx context.Context, cfg DatabaseAgentConfig, sessionID string) (model.SchemaDescription, error) {
	if cfg.Schemas != nil {
		desc, ok, err := cfg.Schemas.GetSchema(ctx, sessionID)
		if err != nil {
			logx.Warn().Err(err).Str("session_id", sessionID).Msg("Schema cache read failed")
		} else if ok {
			return desc, nil
		}
	}

	desc, err := cfg.Store.Introspect(ctx)
	if err != nil {
		return model.SchemaDescription{}, err
	}
	if cfg.Schemas != nil {
		if err := cfg.Schemas.PutSchema(ctx, sessionID, desc); err != nil {
			logx.Warn().Err(err).Str("session_id", sessionID).Msg("Schema cache write failed")
		}
	}
	return desc, nil
}

// NewChatPromptNode hands the raw question to the chat model
func NewChatPromptNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, turn model.Turn) ([]*schema.Message, error) {
		return []*schema.Message{schema.UserMessage(turn.Question)}, nil
	})
}

// NewChatModelPostHandler computes and logs usage cost for the chat model.
func NewChatModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		recordUsage(state, out, modelName, NodeChatModel)
		return out, nil
	}
}

func NewChatReplyNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (model.Answer, error) {
		if msg == nil {
			return model.Answer{}, errx.WrapGeneration(fmt.Errorf("empty chat model reply"))
		}
		return model.Answer{Text: msg.Content, Agent: model.AgentLLM}, nil
	})
}

// NewFinalizerNode appends the assistant entry and returns the new state.
func NewFinalizerNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, a model.Answer) (model.Reply, error) {
		var reply model.Reply
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
			entry := model.ConversationEntry{
				Role:      model.RoleAssistant,
				Text:      a.Text,
				Agent:     a.Agent,
				Timestamp: time.Now().UTC(),
			}
			s.Conversation = s.Conversation.Append(entry)
			reply = model.Reply{State: s.Conversation, Entry: entry, SQL: a.SQL}

			logx.Debug().
				Str("session_id", s.Conversation.SessionID).
				Str("agent", string(a.Agent)).
				Float64("total_cost_usd", s.TotalCostUSD).
				Msg("Reply ready")
			return nil
		})
		if err != nil {
			return model.Reply{}, fmt.Errorf("process state: %w", err)
		}
		return reply, nil
	})
}
