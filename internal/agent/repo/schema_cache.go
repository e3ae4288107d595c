package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/urbanbot/server/internal/agent/model"
	errx "github.com/urbanbot/server/internal/core/error"
	logx "github.com/urbanbot/server/pkg/logger"
)

func schemaKey(sessionID string) string {
	return fmt.Sprintf("conversation:%s:schema", sessionID)
}

// RedisSchemaCache stores the introspected schema next to the conversation,
// with the same TTL.
type RedisSchemaCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisSchemaCache(rdb redis.Cmdable, ttl time.Duration) *RedisSchemaCache {
	return &RedisSchemaCache{rdb: rdb, ttl: ttl}
}

func (c *RedisSchemaCache) GetSchema(ctx context.Context, sessionID string) (model.SchemaDescription, bool, error) {
	key := schemaKey(sessionID)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.SchemaDescription{}, false, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to read cached schema")
		return model.SchemaDescription{}, false, errx.WrapRedis(err)
	}
	var desc model.SchemaDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		// a corrupt entry is treated as a miss and overwritten on the next put
		logx.Warn().Err(err).Str("key", key).Msg("discarding unreadable cached schema")
		return model.SchemaDescription{}, false, nil
	}
	return desc, true, nil
}

func (c *RedisSchemaCache) PutSchema(ctx context.Context, sessionID string, desc model.SchemaDescription) error {
	b, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	key := schemaKey(sessionID)
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to cache schema")
		return errx.WrapRedis(err)
	}
	return nil
}

// MemorySchemaCache keeps schemas for the life of the process.
type MemorySchemaCache struct {
	mu      sync.RWMutex
	schemas map[string]model.SchemaDescription
}

func NewMemorySchemaCache() *MemorySchemaCache {
	return &MemorySchemaCache{schemas: make(map[string]model.SchemaDescription)}
}

func (c *MemorySchemaCache) GetSchema(_ context.Context, sessionID string) (model.SchemaDescription, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.schemas[sessionID]
	return d, ok, nil
}

func (c *MemorySchemaCache) PutSchema(_ context.Context, sessionID string, desc model.SchemaDescription) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[sessionID] = desc
	return nil
}

var (
	_ model.SchemaCache = (*RedisSchemaCache)(nil)
	_ model.SchemaCache = (*MemorySchemaCache)(nil)
)
