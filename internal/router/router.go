package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/psikotes-proctor/internal/config"
	"github.com/stemsi/psikotes-proctor/internal/handler"
	"github.com/stemsi/psikotes-proctor/internal/middleware"
	"github.com/stemsi/psikotes-proctor/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Assessment *handler.AssessmentHandler
	Monitor    *handler.MonitorHandler
	Run        *handler.RunHandler
	System     *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background middleware housekeeping.
func SetupRouter(ctx context.Context, handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", handlers.System.Health)

	// ─── 1. Proctor Group (Audit + Live Feeds) ─────────────────────────
	proctorAPI := router.Group("/api/v1/proctor")
	proctorAPI.Use(
		middleware.NoStore(),
		middleware.Brotli(),
	)
	{
		proctorAPI.GET("/runs", handlers.Run.ListRuns)
		proctorAPI.GET("/sessions/:token/monitor", handlers.Monitor.MonitorSessionSSE)
		proctorAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	// Reconnects per token are bounded so a looping client cannot hammer
	// the backend token check.
	tokenLimiter := middleware.NewRateLimiter(ctx, cfg.TokenRateLimitPerMin, time.Minute, middleware.KeyByTokenParam("token"))

	// ─── 2. WebSocket Group (Token in Path) ────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(tokenLimiter.Middleware())
	{
		ws.GET("/assessment/:token/stream", handlers.Assessment.AssessmentStream)
	}

	return router
}
