package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Janitor は期限切れセッションを定期的に削除します。
type Janitor struct {
	manager  *Manager
	interval time.Duration
	logger   *zap.Logger
	done     chan struct{}
}

// NewJanitor は Janitor を作成します。
func NewJanitor(manager *Manager, interval time.Duration, logger *zap.Logger) *Janitor {
	return &Janitor{
		manager:  manager,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start は掃除ループをバックグラウンドで起動します。
func (j *Janitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				j.sweep(ctx)
			case <-ctx.Done():
				return
			case <-j.done:
				return
			}
		}
	}()
}

// Stop は掃除ループを停止します。
func (j *Janitor) Stop() {
	close(j.done)
}

func (j *Janitor) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := j.manager.DeleteExpired(sweepCtx)
	if err != nil {
		j.logger.Warn("session sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		j.logger.Info("expired sessions removed", zap.Int64("count", n))
	}
}
