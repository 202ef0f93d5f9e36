package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/psikotes-proctor/internal/backend"
	"github.com/stemsi/psikotes-proctor/internal/config"
	"github.com/stemsi/psikotes-proctor/internal/database"
	"github.com/stemsi/psikotes-proctor/internal/handler"
	"github.com/stemsi/psikotes-proctor/internal/logger"
	"github.com/stemsi/psikotes-proctor/internal/repository"
	"github.com/stemsi/psikotes-proctor/internal/router"
	"github.com/stemsi/psikotes-proctor/internal/service"
	"github.com/stemsi/psikotes-proctor/internal/session"
	"github.com/stemsi/psikotes-proctor/internal/validator"
	"github.com/stemsi/psikotes-proctor/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("backend", cfg.BackendURL).
		Msg("Starting Psikotes Proctor")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	runRepo := repository.NewRunRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	backendClient := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, log)
	lockService := service.NewSessionLockService(rdb, cfg.SessionLockTTL, log)
	runService := service.NewRunService(runRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	assessment := handler.NewAssessmentHandler(
		backendClient,
		lockService,
		rdb,
		session.Settings{QuestionSeconds: cfg.QuestionTestSeconds},
		log,
		cfg.AllowedOrigins,
	)
	handlers := &router.Handlers{
		Assessment: assessment,
		Monitor:    handler.NewMonitorHandler(rdb, log),
		Run:        handler.NewRunHandler(runService, log),
		System:     handler.NewSystemHandler(pool, rdb, assessment.ActiveSessions, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workers, workerCtx := errgroup.WithContext(workerCtx)

	auditWorker := worker.NewAuditWorker(runRepo, rdb, log).
		WithBatching(cfg.AuditWorkerBatchSize, cfg.AuditWorkerBatchDelay)
	workers.Go(func() error {
		auditWorker.Start(workerCtx)
		return nil
	})

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	// Request contexts derive from ctx, so a shutdown signal also reaches
	// hijacked WebSocket connections and long-lived SSE streams.
	srv := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     r,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	<-ctx.Done()
	log.Info().Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Wait for candidate sessions to forfeit running tests and release
	// their locks. Shutdown does not track hijacked connections.
	if err := assessment.Wait(shutdownCtx); err != nil {
		log.Warn().Int64("sessions", assessment.ActiveSessions()).Msg("Sessions still open at shutdown")
	}

	// 3. Stop the audit worker; it flushes its buffer before returning.
	workerCancel()
	if err := workers.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
