package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/psikotes-proctor/internal/endurance"
	"github.com/stemsi/psikotes-proctor/internal/model"
	"github.com/stemsi/psikotes-proctor/internal/proctor"
	"github.com/stemsi/psikotes-proctor/internal/response"
	"github.com/stemsi/psikotes-proctor/internal/service"
	"github.com/stemsi/psikotes-proctor/internal/session"
	"github.com/stemsi/psikotes-proctor/internal/timed"
	"github.com/stemsi/psikotes-proctor/internal/timer"
	"github.com/stemsi/psikotes-proctor/internal/validator"
	ws "github.com/stemsi/psikotes-proctor/internal/websocket"
)

// outboundBuffer bounds queued server events per connection.
const outboundBuffer = 64

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// FeedClient is the Redis surface each connection publishes through: the
// live proctor channel and the run audit queue. *redis.Client satisfies it.
type FeedClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// AssessmentHandler serves the candidate's assessment stream.
type AssessmentHandler struct {
	backend  session.Backend
	locks    *service.SessionLockService
	rdb      FeedClient
	settings session.Settings
	log      zerolog.Logger
	upgrader websocket.Upgrader
	active   atomic.Int64
	wg       sync.WaitGroup
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(
	backend session.Backend,
	locks *service.SessionLockService,
	rdb FeedClient,
	settings session.Settings,
	log zerolog.Logger,
	allowedOrigins []string,
) *AssessmentHandler {
	return &AssessmentHandler{
		backend:  backend,
		locks:    locks,
		rdb:      rdb,
		settings: settings,
		log:      log.With().Str("component", "assessment_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ActiveSessions is the number of connected candidates.
func (h *AssessmentHandler) ActiveSessions() int64 {
	return h.active.Load()
}

// Wait blocks until every open session has ended or ctx is done.
func (h *AssessmentHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AssessmentStream godoc
// WS /ws/v1/assessment/:token/stream
// Runs one candidate session: validation, test selection, timers, proctoring
// and submission, all over a single connection.
func (h *AssessmentHandler) AssessmentStream(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrTokenRequired)
		return
	}
	tokenHash := model.HashToken(token)

	lock, err := h.locks.Acquire(c.Request.Context(), tokenHash)
	if err != nil {
		if errors.Is(err, service.ErrSessionLocked) {
			response.Fail(c, http.StatusConflict, response.ErrSessionActive)
			return
		}
		h.log.Error().Err(err).Msg("Session lock unavailable")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrInternal)
		return
	}
	defer lock.Release(context.WithoutCancel(c.Request.Context()))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	h.wg.Add(1)
	defer h.wg.Done()
	h.active.Add(1)
	defer h.active.Add(-1)

	wsLog := h.log.With().
		Str("token_hash", tokenHash[:12]).
		Str("conn_id", response.RequestID(c)).
		Logger()
	wsLog.Info().Msg("Candidate connected")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	out := newOutbox(ctx)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		out.drain(conn, cancel, wsLog)
	}()

	go lock.Hold(ctx, func(error) {
		out.send(ws.ErrorResponse{Event: ws.EventError, Code: string(response.ErrSessionActive), Error: response.GetMessage(response.ErrSessionActive)})
		cancel()
	})

	monitor := proctor.NewMonitor(proctor.DefaultBuffer, wsLog)
	notify := session.Notifiers{
		session.NotifierFunc(func(n session.Notice) { h.deliver(out, n) }),
		service.NewProctorFeed(h.rdb, tokenHash, wsLog),
		service.NewRunAuditor(h.rdb, tokenHash, wsLog),
	}
	ctl := session.NewController(token, h.backend, monitor, notify, h.settings, wsLog)

	if err := ctl.Validate(ctx); err == nil {
		cmds := make(chan session.Command)
		readerDone := make(chan struct{})
		go func() {
			defer close(readerDone)
			defer close(cmds)
			h.readLoop(ctx, conn, monitor, cmds, out, wsLog)
		}()

		if err := ctl.Run(ctx, cmds, timer.Real); err != nil && !errors.Is(err, context.Canceled) {
			wsLog.Warn().Err(err).Msg("Session loop stopped")
		}

		out.close()
		<-writerDone
		_ = ws.WriteClose(conn, string(ctl.State()))
		cancel()
		conn.Close()
		<-readerDone
	} else {
		out.close()
		<-writerDone
		_ = ws.WriteClose(conn, string(model.SessionAccessDenied))
	}

	wsLog.Info().Str("state", string(ctl.State())).Msg("Candidate disconnected")
}

// readLoop decodes client messages until the connection fails. Signals go
// straight to the monitor; session actions are queued for the controller.
func (h *AssessmentHandler) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	monitor *proctor.Monitor,
	cmds chan<- session.Command,
	out *outbox,
	log zerolog.Logger,
) {
	for {
		var req ws.Request
		if err := ws.ReadJSON(conn, &req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected close")
			} else {
				log.Debug().Msg("Connection closed")
			}
			return
		}

		if fields := validator.Struct(&req); fields != nil {
			out.send(ws.ErrorResponse{Event: ws.EventError, Code: string(response.ErrValidation), Error: joinFields(fields)})
			continue
		}

		switch req.Action {
		case ws.ActionPing:
			out.send(ws.PongResponse{Event: ws.EventPong})
		case ws.ActionSignal:
			monitor.Observe(req.Signal.ToSignal())
		default:
			cmd, ok := req.Command()
			if !ok {
				continue
			}
			select {
			case cmds <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *AssessmentHandler) deliver(out *outbox, n session.Notice) {
	if n.Type == session.NoticeError {
		code := errorCode(n.Err)
		out.send(ws.ErrorResponse{Event: ws.EventError, Code: string(code), Error: response.GetMessage(code)})
		return
	}
	if msg, ok := ws.FromNotice(n); ok {
		out.send(msg)
	}
}

// errorCode maps controller errors to API error codes.
func errorCode(err error) response.ErrCode {
	switch {
	case errors.Is(err, session.ErrAccessDenied):
		return response.ErrAccessDenied
	case errors.Is(err, session.ErrSessionClosed):
		return response.ErrSessionClosed
	case errors.Is(err, session.ErrNotValidated):
		return response.ErrSessionNotReady
	case errors.Is(err, session.ErrUnknownTest):
		return response.ErrUnknownTest
	case errors.Is(err, session.ErrTestCompleted):
		return response.ErrTestCompleted
	case errors.Is(err, session.ErrTestActive):
		return response.ErrTestActive
	case errors.Is(err, session.ErrNoActiveTest):
		return response.ErrNoActiveTest
	case errors.Is(err, session.ErrWrongTest):
		return response.ErrWrongTest
	case errors.Is(err, session.ErrConfigUnavailable):
		return response.ErrConfigUnavailable
	case errors.Is(err, session.ErrSubmissionsPending):
		return response.ErrSubmissionsPending
	case errors.Is(err, timed.ErrQuestionIndex), errors.Is(err, timed.ErrOptionIndex),
		errors.Is(err, endurance.ErrInvalidDigit), errors.Is(err, endurance.ErrFinished),
		errors.Is(err, timed.ErrNotRunning):
		return response.ErrInvalidAnswer
	default:
		return response.ErrInternal
	}
}

func joinFields(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for _, msg := range fields {
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}

// outbox serializes writes to the connection. Producers never block past
// the connection's lifetime.
type outbox struct {
	ctx    context.Context
	ch     chan interface{}
	once   sync.Once
	closed chan struct{}
}

func newOutbox(ctx context.Context) *outbox {
	return &outbox{ctx: ctx, ch: make(chan interface{}, outboundBuffer), closed: make(chan struct{})}
}

func (o *outbox) send(msg interface{}) {
	select {
	case o.ch <- msg:
	case <-o.closed:
	case <-o.ctx.Done():
	}
}

// close stops the writer once queued messages are flushed.
func (o *outbox) close() {
	o.once.Do(func() { close(o.closed) })
}

func (o *outbox) drain(conn *websocket.Conn, cancel context.CancelFunc, log zerolog.Logger) {
	write := func(msg interface{}) bool {
		if err := ws.WriteTyped(conn, msg); err != nil {
			log.Debug().Err(err).Msg("Write failed")
			cancel()
			return false
		}
		return true
	}

	for {
		select {
		case msg := <-o.ch:
			if !write(msg) {
				return
			}
		case <-o.closed:
			for {
				select {
				case msg := <-o.ch:
					if !write(msg) {
						return
					}
				default:
					return
				}
			}
		case <-o.ctx.Done():
			return
		}
	}
}
