// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yourusername/fuel-tracker/internal/config"
	"github.com/yourusername/fuel-tracker/internal/database"
	"github.com/yourusername/fuel-tracker/internal/fuel"
	"github.com/yourusername/fuel-tracker/internal/logging"
	"github.com/yourusername/fuel-tracker/internal/ratelimit"
	"github.com/yourusername/fuel-tracker/internal/session"
	"github.com/yourusername/fuel-tracker/internal/user"
	"github.com/yourusername/fuel-tracker/internal/vehicle"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	gin.SetMode(cfg.GinMode)

	logger, err := logging.New(cfg.GinMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// スキーマは起動時に明示的にプロビジョニングする
	if err := database.Migrate(ctx, cfg.Database.DSN); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	db, err := database.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// レート制限カウンター。Redis があればインスタンス間で共有する
	var limiter ratelimit.Limiter
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		limiter = ratelimit.NewRedisLimiter(rdb)
		logger.Info("rate limiter backed by redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		limiter = ratelimit.NewMemoryLimiter()
		logger.Info("rate limiter backed by process memory")
	}

	sessionManager := session.NewManager(session.NewPostgresStore(db), session.ManagerOptions{
		Secret:     cfg.Session.Secret,
		TTL:        cfg.Session.TTL,
		Sliding:    cfg.Session.Sliding,
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.GinMode == gin.ReleaseMode,
	})

	janitor := session.NewJanitor(sessionManager, time.Hour, logger)
	janitor.Start(ctx)
	defer janitor.Stop()

	router := newRouter(routerDeps{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		sessions: sessionManager,
		limiter:  limiter,
		users:    user.NewPostgresRepository(db),
		vehicles: vehicle.NewPostgresRepository(db),
		entries:  fuel.NewPostgresRepository(db),
	})

	srv := &http.Server{
		Addr:    listenAddr(cfg),
		Handler: router,
	}

	go func() {
		logger.Info("starting API server",
			zap.String("addr", srv.Addr),
			zap.String("mode", cfg.GinMode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// シグナル受信後は新規受付を止め、処理中のリクエスト完了を待ってから
	// ストアの接続を解放する
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
