package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/psikotes-proctor/internal/config"
	"github.com/stemsi/psikotes-proctor/internal/model"
	"github.com/stemsi/psikotes-proctor/internal/session"
)

const publishTimeout = 2 * time.Second

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// FeedEvent is one message on a session's live proctor channel.
type FeedEvent struct {
	Type           session.NoticeType    `json:"type"`
	Kind           model.TestKind        `json:"kind,omitempty"`
	Reason         model.ViolationReason `json:"reason,omitempty"`
	ViolationCount int                   `json:"violation_count"`
	Cause          model.CompletionCause `json:"cause,omitempty"`
	Outcome        model.RunOutcome      `json:"outcome,omitempty"`
	Answered       int                   `json:"answered,omitempty"`
	Timestamp      int64                 `json:"timestamp"`
}

// ProctorFeed publishes the proctor-relevant notices of one session to Redis
// Pub/Sub. Answers and question payloads are never published.
type ProctorFeed struct {
	rdb       publisher
	channel   string
	tokenHash string
	now       func() time.Time
	log       zerolog.Logger
}

// NewProctorFeed creates a feed bound to tokenHash.
func NewProctorFeed(rdb publisher, tokenHash string, log zerolog.Logger) *ProctorFeed {
	return &ProctorFeed{
		rdb:       rdb,
		channel:   config.CacheKey.MonitorChannel(tokenHash),
		tokenHash: tokenHash,
		now:       time.Now,
		log:       log.With().Str("component", "proctor_feed").Logger(),
	}
}

// Notify implements session.Notifier.
func (f *ProctorFeed) Notify(n session.Notice) {
	switch n.Type {
	case session.NoticeAccessDenied, session.NoticeStarted, session.NoticeWarning,
		session.NoticeTerminated, session.NoticeCompleted, session.NoticeSubmitted,
		session.NoticeSubmitFailed, session.NoticeFinalized, session.NoticeFinalizeFailed:
	default:
		return
	}

	ev := FeedEvent{
		Type:           n.Type,
		Kind:           n.Kind,
		Reason:         n.Reason,
		ViolationCount: n.ViolationCount,
		Cause:          n.Cause,
		Outcome:        n.Outcome,
		Timestamp:      f.now().Unix(),
	}
	if n.Submission != nil {
		ev.Answered = n.Submission.AnsweredCount()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		f.log.Error().Err(err).Msg("Failed to encode feed event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := f.rdb.Publish(ctx, f.channel, data).Err(); err != nil {
		f.log.Warn().Err(err).Str("type", string(n.Type)).Msg("Failed to publish feed event")
	}
}
