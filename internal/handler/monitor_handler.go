package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/psikotes-proctor/internal/config"
	"github.com/stemsi/psikotes-proctor/internal/model"
	"github.com/stemsi/psikotes-proctor/internal/response"
)

const keepAliveInterval = 30 * time.Second

type MonitorHandler struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewMonitorHandler(rdb *redis.Client, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		rdb: rdb,
		log: log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorSessionSSE godoc
// GET /api/v1/proctor/sessions/:token/monitor
// Streams one candidate's proctoring feed: test starts, warnings,
// terminations, completions and finalization.
func (h *MonitorHandler) MonitorSessionSSE(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrTokenRequired)
		return
	}
	tokenHash := model.HashToken(token)
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.MonitorChannel(tokenHash))
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	log := h.log.With().Str("token_hash", tokenHash[:12]).Logger()
	log.Info().Msg("Proctor attached to live monitor SSE")

	c.SSEvent("message", map[string]interface{}{
		"type":       "attached",
		"token_hash": tokenHash,
	})
	c.Writer.Flush()

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			log.Info().Msg("Proctor disconnected from live monitor SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Payloads are already JSON-encoded FeedEvents.
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}
