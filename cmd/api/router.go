package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/fuel-tracker/internal/apperr"
	"github.com/yourusername/fuel-tracker/internal/auth"
	"github.com/yourusername/fuel-tracker/internal/config"
	"github.com/yourusername/fuel-tracker/internal/csrf"
	"github.com/yourusername/fuel-tracker/internal/fuel"
	"github.com/yourusername/fuel-tracker/internal/health"
	"github.com/yourusername/fuel-tracker/internal/logging"
	"github.com/yourusername/fuel-tracker/internal/ratelimit"
	"github.com/yourusername/fuel-tracker/internal/session"
	"github.com/yourusername/fuel-tracker/internal/user"
	"github.com/yourusername/fuel-tracker/internal/vehicle"
)

// routerDeps はルーターの組み立てに必要な依存一式です。
// テストから差し替えられるよう、全てインターフェースか注入済みの値です。
type routerDeps struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       health.Pinger
	sessions *session.Manager
	limiter  ratelimit.Limiter
	users    user.Repository
	vehicles vehicle.Repository
	entries  fuel.Repository
}

// newRouter は全ミドルウェアとルーティングを配線した gin.Engine を返します。
func newRouter(deps routerDeps) *gin.Engine {
	cfg := deps.cfg
	debug := cfg.GinMode != gin.ReleaseMode

	router := gin.New()

	router.Use(logging.RequestLogger(deps.logger))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		deps.logger.Error("panic recovered", zap.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"code":    apperr.CodeInternal,
			"message": "Internal Server Error",
		})
	}))
	// エラーレスポンダーはパイプラインの最終段
	router.Use(apperr.ErrorHandler(deps.logger, debug))

	// クッキーセッションのための CORS 設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", csrf.Header}
	router.Use(cors.New(corsConfig))

	router.GET("/health", health.Handler(deps.db))

	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	authHandler := auth.NewHandler(deps.users, deps.sessions, hasher)
	vehicleHandler := vehicle.NewHandler(deps.vehicles)
	fuelHandler := fuel.NewHandler(deps.entries, deps.vehicles)

	api := router.Group("/api", deps.sessions.Middleware())
	{
		authRoutes := api.Group("/auth")
		{
			// SPA がミューテーション前に取得するトークン発行エンドポイント
			authRoutes.GET("/csrf", csrf.TokenHandler)

			// レート制限は CSRF・バリデーションより前段
			authRoutes.POST("/register",
				ratelimit.Middleware(deps.limiter, cfg.RateLimit.RegisterMax, cfg.RateLimit.Window,
					auth.RegisterRateKey, deps.logger, "Too many registrations. Please try again later."),
				csrf.Guard(),
				authHandler.Register,
			)
			authRoutes.POST("/login",
				ratelimit.Middleware(deps.limiter, cfg.RateLimit.LoginMax, cfg.RateLimit.Window,
					auth.LoginRateKey, deps.logger, "Too many login attempts. Please try again later."),
				csrf.Guard(),
				authHandler.Login,
			)
			authRoutes.POST("/logout", csrf.Guard(), authHandler.Logout)
			authRoutes.GET("/me", authHandler.Me)
		}

		vehicleRoutes := api.Group("/vehicles", session.RequireAuth(), csrf.Guard())
		{
			vehicleRoutes.GET("", vehicleHandler.List)
			vehicleRoutes.POST("", vehicleHandler.Create)
			vehicleRoutes.PUT("/:id", vehicleHandler.Update)
			vehicleRoutes.DELETE("/:id", vehicleHandler.Delete)
		}

		fuelRoutes := api.Group("/fuel", session.RequireAuth(), csrf.Guard())
		{
			fuelRoutes.GET("", fuelHandler.List)
			fuelRoutes.POST("", fuelHandler.Create)
			fuelRoutes.PUT("/:id", fuelHandler.Update)
			fuelRoutes.DELETE("/:id", fuelHandler.Delete)
		}
	}

	return router
}

// listenAddr は設定からリッスンアドレスを組み立てます。
func listenAddr(cfg *config.Config) string {
	return fmt.Sprintf(":%s", cfg.Port)
}
