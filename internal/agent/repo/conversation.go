package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/urbanbot/server/internal/agent/model"
	errx "github.com/urbanbot/server/internal/core/error"
	logx "github.com/urbanbot/server/pkg/logger"
)

type RedisConversationRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration) *RedisConversationRepository {
	return &RedisConversationRepository{rdb: rdb, ttl: ttl}
}

func conversationKey(sessionID string) string {
	return fmt.Sprintf("conversation:%s:entries", sessionID)
}

func (r *RedisConversationRepository) AppendEntries(ctx context.Context, sessionID string, entries ...model.ConversationEntry) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]any, 0, len(entries))
	for _, e := range entries {
		b, err := json.Marshal(e)
		if err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to marshal entry")
			return fmt.Errorf("marshal entry: %w", err)
		}
		values = append(values, b)
	}
	key := conversationKey(sessionID)

	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, key, values...)
	// extend TTL on touch
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push entries to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) LoadState(ctx context.Context, sessionID string) (model.ConversationState, error) {
	key := conversationKey(sessionID)
	state := model.ConversationState{SessionID: sessionID, Entries: []model.ConversationEntry{}}

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return state, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation from redis")
		return model.ConversationState{}, errx.WrapRedis(err)
	}

	for i, s := range rows {
		var e model.ConversationEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Int("index", i).Msg("failed to unmarshal entry")
			return model.ConversationState{}, fmt.Errorf("unmarshal entry at index %d: %w", i, err)
		}
		state.Entries = append(state.Entries, e)
	}
	return state, nil
}

func (r *RedisConversationRepository) ClearHistory(ctx context.Context, sessionID string) error {
	key := conversationKey(sessionID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete conversation from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) GetEntryCount(ctx context.Context, sessionID string) (int, error) {
	key := conversationKey(sessionID)
	n, err := r.rdb.LLen(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to get entry count from redis")
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

var _ model.ConversationRepository = (*RedisConversationRepository)(nil)
