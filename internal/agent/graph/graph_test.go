package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanbot/server/internal/agent/graph/nodes"
	"github.com/urbanbot/server/internal/agent/model"
	"github.com/urbanbot/server/internal/agent/repo"
	"github.com/urbanbot/server/internal/agent/reports"
	errx "github.com/urbanbot/server/internal/core/error"
	"github.com/urbanbot/server/internal/store"
	"github.com/urbanbot/server/internal/testutil"
)

type fixture struct {
	runner  Runner
	store   *store.Store
	sql     *testutil.FakeChatModel
	chat    *testutil.FakeChatModel
	mailer  *testutil.FakeMailer
	schemas *repo.MemorySchemaCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   testutil.NewStore(t),
		sql:     &testutil.FakeChatModel{},
		chat:    &testutil.FakeChatModel{Reply: "UrbanBot watches city sensors."},
		mailer:  &testutil.FakeMailer{},
		schemas: repo.NewMemorySchemaCache(),
	}
	r, err := NewRunner(context.Background(), &GraphConfig{
		ChatModels: &nodes.ChatModels{SQL: f.sql, Chat: f.chat, SQLModelName: "sql-fake", ChatModelName: "chat-fake"},
		Store:      f.store,
		Schemas:    f.schemas,
		Reports:    reports.MustDefault(),
		Mailer:     f.mailer,
		RowLimit:   100,
	})
	require.NoError(t, err)
	f.runner = r
	return f
}

func (f *fixture) ask(t *testing.T, state model.ConversationState, q string) model.Reply {
	t.Helper()
	reply, err := f.runner.Invoke(context.Background(), model.QueryInput{State: state, Question: q})
	require.NoError(t, err)
	return reply
}

func seedAccidents(t *testing.T, s *store.Store, severities ...string) {
	t.Helper()
	for i, sev := range severities {
		require.NoError(t, s.InsertAccident(context.Background(), store.AccidentLog{
			AccidentID: "acc-" + string(rune('a'+i)),
			Timestamp:  time.Now(),
			Location:   store.Location{City: "Chennai", Area: "Guindy"},
			Severity:   sev,
		}))
	}
}

func TestChatAgentReturnsModelTextVerbatim(t *testing.T) {
	f := newFixture(t)
	state := model.NewConversationState("s1")

	reply := f.ask(t, state, "What is UrbanBot?")

	assert.Equal(t, "UrbanBot watches city sensors.", reply.Entry.Text)
	assert.Equal(t, model.AgentLLM, reply.Entry.Agent)
	assert.Equal(t, model.RoleAssistant, reply.Entry.Role)
	assert.Equal(t, "What is UrbanBot?", f.chat.LastPrompt())
	assert.Zero(t, f.sql.Calls())

	require.Len(t, reply.State.Entries, 3)
	assert.Equal(t, model.RoleUser, reply.State.Entries[1].Role)
	assert.Equal(t, "What is UrbanBot?", reply.State.Entries[1].Text)
	assert.Equal(t, reply.Entry, reply.State.Entries[2])
	// input state is not modified
	assert.Len(t, state.Entries, 1)
}

func TestReportOutranksGeneratedQuery(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.InsertTraffic(context.Background(), store.TrafficLog{
		Timestamp: time.Now(), Location: store.Location{City: "Pune", Area: "Baner"},
		VehicleCount: 30, CongestionLevel: "high",
	}))

	reply := f.ask(t, model.NewConversationState("s1"), "traffic report: how many vehicles?")

	assert.Equal(t, model.AgentReport, reply.Entry.Agent)
	assert.Contains(t, reply.Entry.Text, "### 🚗 Traffic Report")
	assert.Contains(t, reply.Entry.Text, "**Total:** 1")
	assert.Contains(t, reply.Entry.Text, "- high: 1")
	assert.Zero(t, f.sql.Calls())
}

func TestDatabaseAgentFormatsRows(t *testing.T) {
	f := newFixture(t)
	seedAccidents(t, f.store, "high", "low", "low")
	f.sql.Reply = "```sql\nSELECT severity, COUNT(*) AS n FROM accident_logs GROUP BY severity ORDER BY severity;\n```"

	reply := f.ask(t, model.NewConversationState("s1"), "How many accidents by severity?")

	assert.Equal(t, model.AgentDB, reply.Entry.Agent)
	assert.Equal(t, "\n### 🚨 Accident Insight\n\n- high: n 1\n- low: n 2\n", reply.Entry.Text)
	assert.Equal(t, "SELECT severity, COUNT(*) AS n FROM accident_logs GROUP BY severity ORDER BY severity LIMIT 100", reply.SQL)
	assert.Contains(t, f.sql.LastPrompt(), "accident_logs: accident_id, timestamp")
	assert.Contains(t, f.sql.LastPrompt(), "DATE('now')")

	// schema is cached per session
	_, ok, err := f.schemas.GetSchema(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDatabaseAgentScalar(t *testing.T) {
	f := newFixture(t)
	seedAccidents(t, f.store, "high", "high")
	f.sql.Reply = "SELECT COUNT(*) FROM accident_logs"

	reply := f.ask(t, model.NewConversationState("s1"), "count accidents")
	assert.Equal(t, "**Total:** 2", reply.Entry.Text)
}

func TestDatabaseAgentBlocksUnsafeQuery(t *testing.T) {
	f := newFixture(t)
	seedAccidents(t, f.store, "high")
	f.sql.Reply = "DELETE FROM accident_logs"

	reply := f.ask(t, model.NewConversationState("s1"), "how many accidents today")
	assert.Equal(t, nodes.ReplyUnsafeQuery, reply.Entry.Text)
	assert.Equal(t, model.AgentDB, reply.Entry.Agent)

	n, err := f.store.CountRows(context.Background(), "accident_logs")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestDatabaseAgentReportsStoreError(t *testing.T) {
	f := newFixture(t)
	f.sql.Reply = "SELECT missing_column FROM accident_logs"

	reply := f.ask(t, model.NewConversationState("s1"), "how many accidents")
	assert.Contains(t, reply.Entry.Text, "DB error: ")
	assert.Equal(t, model.AgentDB, reply.Entry.Agent)
}

func TestGenerationFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	f.sql.Err = errors.New("quota exceeded")

	_, err := f.runner.Invoke(context.Background(), model.QueryInput{
		State: model.NewConversationState("s1"), Question: "how many alerts today",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrGeneration))
}

func TestEmailWithoutPriorReport(t *testing.T) {
	f := newFixture(t)
	state := model.ConversationState{SessionID: "s1"}

	reply := f.ask(t, state, "send email")
	assert.Equal(t, nodes.ReplyNoReport, reply.Entry.Text)
	assert.Equal(t, model.AgentEmail, reply.Entry.Agent)
	assert.Zero(t, f.mailer.Count())
}

func TestEmailSendsPreviousAssistantText(t *testing.T) {
	f := newFixture(t)
	state := model.NewConversationState("s1")
	state = f.ask(t, state, "crowd report").State

	reply := f.ask(t, state, "please send this by email")
	assert.Equal(t, nodes.ReplyEmailSent, reply.Entry.Text)
	require.Equal(t, 1, f.mailer.Count())
	assert.Equal(t, nodes.EmailSubject, f.mailer.Sent[0].Subject)
	assert.Contains(t, f.mailer.Sent[0].Body, "### 👥 Crowd Density Report")
}

func TestEmailFailureStaysInConversation(t *testing.T) {
	f := newFixture(t)
	f.mailer.Err = errors.New("auth failed")

	reply := f.ask(t, model.NewConversationState("s1"), "send email")
	assert.Equal(t, "⚠️ Email failed: auth failed", reply.Entry.Text)
}

func TestEmptyQuestionRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.Invoke(context.Background(), model.QueryInput{State: model.NewConversationState("s1"), Question: "   "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrEmptyQuestion))
}

func TestChatModelUsageIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.chat.Usage = &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}

	reply := f.ask(t, model.NewConversationState("s1"), "hello")
	assert.Equal(t, "UrbanBot watches city sensors.", reply.Entry.Text)
}

func TestBuildGraphValidatesConfig(t *testing.T) {
	_, err := BuildGraph(context.Background(), nil)
	assert.Error(t, err)

	_, err = BuildGraph(context.Background(), &GraphConfig{})
	assert.Error(t, err)
}
