package repo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanbot/server/internal/agent/model"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func entries() []model.ConversationEntry {
	ts := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	return []model.ConversationEntry{
		{Role: model.RoleAssistant, Text: model.Greeting, Agent: model.AgentLLM, Timestamp: ts},
		{Role: model.RoleUser, Text: "traffic report", Timestamp: ts.Add(time.Second)},
		{Role: model.RoleAssistant, Text: "### 🚗 Traffic Report", Agent: model.AgentReport, Timestamp: ts.Add(2 * time.Second)},
	}
}

func exerciseRepository(t *testing.T, r model.ConversationRepository) {
	ctx := context.Background()

	st, err := r.LoadState(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", st.SessionID)
	assert.Empty(t, st.Entries)

	want := entries()
	require.NoError(t, r.AppendEntries(ctx, "s1", want[0]))
	require.NoError(t, r.AppendEntries(ctx, "s1", want[1:]...))
	require.NoError(t, r.AppendEntries(ctx, "s1"))

	st, err = r.LoadState(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, want, st.Entries)

	n, err := r.GetEntryCount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = r.GetEntryCount(ctx, "other")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, r.ClearHistory(ctx, "s1"))
	n, err = r.GetEntryCount(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryConversationRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryConversationRepository())
}

func TestRedisConversationRepository(t *testing.T) {
	_, rdb := newRedis(t)
	exerciseRepository(t, NewRedisConversationRepository(rdb, time.Hour))
}

func TestRedisConversationRepositoryTTL(t *testing.T) {
	mr, rdb := newRedis(t)
	r := NewRedisConversationRepository(rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, r.AppendEntries(ctx, "s2", entries()[0]))
	assert.Equal(t, time.Minute, mr.TTL(conversationKey("s2")))

	mr.FastForward(2 * time.Minute)
	st, err := r.LoadState(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, st.Entries)
}

func TestMemoryStateIsACopy(t *testing.T) {
	r := NewMemoryConversationRepository()
	ctx := context.Background()
	require.NoError(t, r.AppendEntries(ctx, "s", entries()...))

	st, err := r.LoadState(ctx, "s")
	require.NoError(t, err)
	st.Entries[0].Text = "changed"

	again, err := r.LoadState(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, model.Greeting, again.Entries[0].Text)
}

func TestSchemaCaches(t *testing.T) {
	_, rdb := newRedis(t)
	desc := model.SchemaDescription{
		Dialect: "sqlite",
		Tables: []model.TableSchema{
			{Name: "traffic_logs", Columns: []string{"id", "timestamp", "city"}},
		},
	}
	ctx := context.Background()

	for name, c := range map[string]model.SchemaCache{
		"memory": NewMemorySchemaCache(),
		"redis":  NewRedisSchemaCache(rdb, time.Hour),
	} {
		t.Run(name, func(t *testing.T) {
			_, ok, err := c.GetSchema(ctx, "s1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, c.PutSchema(ctx, "s1", desc))
			got, ok, err := c.GetSchema(ctx, "s1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, desc, got)
		})
	}
}

func TestRedisSchemaCacheIgnoresCorruptEntry(t *testing.T) {
	mr, rdb := newRedis(t)
	require.NoError(t, mr.Set(schemaKey("s1"), "{not json"))

	_, ok, err := NewRedisSchemaCache(rdb, time.Hour).GetSchema(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}
