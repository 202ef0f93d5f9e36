package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/psikotes-proctor/internal/config"
	"github.com/stemsi/psikotes-proctor/internal/response"
)

const (
	metricsInterval = 7 * time.Second
	probeTimeout    = 2 * time.Second
)

// SystemHandler reports liveness and streams runtime metrics via SSE.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	sessions  func() int64
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a SystemHandler. sessions reports the number of
// connected candidates.
func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client, sessions func() int64, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pool:      pool,
		rdb:       rdb,
		sessions:  sessions,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthStatus struct {
	Status   string `json:"status"`
	Postgres string `json:"postgres"`
	Redis    string `json:"redis"`
	Uptime   string `json:"uptime"`
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	status := healthStatus{Status: "ok", Postgres: "ok", Redis: "ok", Uptime: formatDuration(time.Since(h.startTime))}
	if err := h.pool.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("PostgreSQL health probe failed")
		status.Postgres = "down"
		status.Status = "degraded"
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		h.log.Warn().Err(err).Msg("Redis health probe failed")
		status.Redis = "down"
		status.Status = "degraded"
	}

	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	response.Success(c, code, status)
}

type systemMetrics struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	// Go Application
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	StackInuse uint64 `json:"stack_inuse"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`
	NumCPU     int    `json:"num_cpu"`

	// Assessment runtime
	ActiveSessions int64 `json:"active_sessions"`
	QueueRuns      int64 `json:"queue_runs"`
	DBConnsInUse   int32 `json:"db_conns_in_use"`
	DBConnsIdle    int32 `json:"db_conns_idle"`
}

// SystemMetricsSSE godoc
// GET /api/v1/proctor/system/metrics
func (h *SystemHandler) SystemMetricsSSE(c *gin.Context) {
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.log.Info().Msg("Proctor connected to system metrics SSE")

	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	// Send immediately on connect, then every tick
	h.writeMetrics(c)

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Proctor disconnected from system metrics SSE")
			return
		case <-ticker.C:
			h.writeMetrics(c)
		}
	}
}

func (h *SystemHandler) writeMetrics(c *gin.Context) {
	m := h.collect(c.Request.Context())
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(data)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}

func (h *SystemHandler) collect(ctx context.Context) systemMetrics {
	m := systemMetrics{
		Timestamp: time.Now().Unix(),
		Uptime:    formatDuration(time.Since(h.startTime)),
		GoVersion: runtime.Version(),
		NumCPU:    runtime.NumCPU(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.Goroutines = runtime.NumGoroutine()
	m.HeapAlloc = ms.HeapAlloc
	m.HeapSys = ms.Sys
	m.StackInuse = ms.StackInuse
	m.NumGC = ms.NumGC

	if h.sessions != nil {
		m.ActiveSessions = h.sessions()
	}

	stat := h.pool.Stat()
	m.DBConnsInUse = stat.AcquiredConns()
	m.DBConnsIdle = stat.IdleConns()

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if n, err := h.rdb.LLen(probeCtx, config.WorkerKey.PersistRunsQueue).Result(); err == nil {
		m.QueueRuns = n
	}

	return m
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
