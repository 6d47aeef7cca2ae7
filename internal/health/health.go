// Package health はヘルスチェックエンドポイントを提供します。
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger はデータベースの疎通確認に必要な操作です。
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler は GET /health のハンドラーを返します。
func Handler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "up"
		if err := db.Ping(ctx); err != nil {
			dbStatus = "down"
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"db":     dbStatus,
		})
	}
}
