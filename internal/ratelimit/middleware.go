package ratelimit

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/fuel-tracker/internal/apperr"
)

// KeyFunc はリクエストからレート制限キーを導出します。
type KeyFunc func(c *gin.Context) string

// Middleware は指定のキー・上限・ウィンドウでリクエストを絞るミドルウェアを返します。
// リミッター自体の障害時は可用性を優先し、警告ログを残して通します。
func Middleware(limiter Limiter, limit int, window time.Duration, key KeyFunc, logger *zap.Logger, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), key(c), limit, window)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			apperr.Abort(c, apperr.RateLimited(message))
			return
		}

		c.Next()
	}
}
