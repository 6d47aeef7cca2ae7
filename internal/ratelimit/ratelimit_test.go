package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/fuel-tracker/internal/apperr"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func TestMemoryLimiterAllowsUpToLimit(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "key", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "key", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestMemoryLimiterIsolatesKeys(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// 別キーには影響しない
	allowed, err = limiter.Allow(ctx, "b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryLimiterResetsAfterWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "key", 1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "key", 1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, allowed)

	time.Sleep(20 * time.Millisecond)

	allowed, err = limiter.Allow(ctx, "key", 1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, errors.New("limiter down")
}

func newLimitedRouter(limiter Limiter, limit int) *gin.Engine {
	router := gin.New()
	router.Use(apperr.ErrorHandler(zap.NewNop(), false))
	router.POST("/",
		Middleware(limiter, limit, time.Minute, func(c *gin.Context) string { return c.ClientIP() }, zap.NewNop(), "Too many attempts."),
		func(c *gin.Context) { c.Status(http.StatusNoContent) },
	)
	return router
}

func TestMiddlewareBlocksOverLimit(t *testing.T) {
	router := newLimitedRouter(NewMemoryLimiter(), 2)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "Too many attempts.")
}

func TestMiddlewareFailsOpen(t *testing.T) {
	router := newLimitedRouter(failingLimiter{}, 1)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}
