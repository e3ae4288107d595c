package errx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestStatusAndMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"store", WrapStore(errors.New("dial tcp: refused")), http.StatusServiceUnavailable, StoreErrorMessage},
		{"generation", WrapGeneration(errors.New("quota")), http.StatusBadGateway, GenerationErrorMessage},
		{"invalid", Invalid("limit %d too large", 900), http.StatusBadRequest, "limit 900 too large"},
		{"unsafe", Unsafe("missing SELECT"), http.StatusUnprocessableEntity, "missing SELECT"},
		{"bare sentinel", fmt.Errorf("report: %w", ErrUnknownReport), http.StatusNotFound, "report: unknown report"},
		{"plain", errors.New("secret detail"), http.StatusInternalServerError, SystemErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, StatusOf(tt.err))
			assert.Equal(t, tt.message, MessageOf(tt.err))
		})
	}
}

func TestWrapStoreIsIdempotent(t *testing.T) {
	once := WrapStore(errors.New("boom"))
	assert.Same(t, once, WrapStore(once))
	assert.True(t, errors.Is(once, ErrStoreUnavailable))
	assert.Nil(t, WrapStore(nil))
}

func TestWrapRedis(t *testing.T) {
	assert.Nil(t, WrapRedis(nil))

	missing := WrapRedis(redis.Nil)
	assert.Equal(t, http.StatusNotFound, StatusOf(missing))
	assert.True(t, errors.Is(missing, ErrNotFound))
	assert.True(t, errors.Is(missing, redis.Nil))

	slow := WrapRedis(fmt.Errorf("get: %w", context.DeadlineExceeded))
	assert.Equal(t, http.StatusGatewayTimeout, StatusOf(slow))
	assert.Equal(t, RedisTimeoutMessage, MessageOf(slow))

	assert.Equal(t, http.StatusBadGateway, StatusOf(WrapRedis(errors.New("conn reset"))))
}

func TestAsFindsAppError(t *testing.T) {
	err := fmt.Errorf("outer: %w", Invalid("bad"))
	var app *AppError
	assert.True(t, errors.As(err, &app))
	assert.Equal(t, http.StatusBadRequest, app.Status)
}
