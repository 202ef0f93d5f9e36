package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/psikotes-proctor/internal/config"
	"github.com/stemsi/psikotes-proctor/internal/model"
	"github.com/stemsi/psikotes-proctor/internal/session"
)

type queuePusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RunAuditor queues one aggregate audit record per completed test for the
// AuditWorker to persist.
type RunAuditor struct {
	rdb       queuePusher
	tokenHash string
	now       func() time.Time
	log       zerolog.Logger
}

// NewRunAuditor creates an auditor bound to tokenHash.
func NewRunAuditor(rdb queuePusher, tokenHash string, log zerolog.Logger) *RunAuditor {
	return &RunAuditor{
		rdb:       rdb,
		tokenHash: tokenHash,
		now:       time.Now,
		log:       log.With().Str("component", "run_auditor").Logger(),
	}
}

// Notify implements session.Notifier.
func (a *RunAuditor) Notify(n session.Notice) {
	if n.Type != session.NoticeCompleted || n.Submission == nil {
		return
	}

	audit := NewRunAudit(a.tokenHash, n.Submission, a.now())
	data, err := json.Marshal(audit)
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to encode run audit")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := a.rdb.RPush(ctx, config.WorkerKey.PersistRunsQueue, data).Err(); err != nil {
		a.log.Error().Err(err).Str("kind", string(audit.Kind)).Msg("Failed to queue run audit")
	}
}

// NewRunAudit summarizes a submission. Endurance metrics are copied from the
// score; answers themselves are not kept.
func NewRunAudit(tokenHash string, sub *model.Submission, at time.Time) *model.RunAudit {
	audit := &model.RunAudit{
		ID:             uuid.New(),
		TokenHash:      tokenHash,
		Kind:           sub.Kind,
		Cause:          sub.Cause,
		Outcome:        model.OutcomeFor(sub.Cause),
		ViolationCount: sub.ViolationCount,
		ElapsedSeconds: sub.ElapsedSeconds,
		AnsweredCount:  sub.AnsweredCount(),
		RecordedAt:     at.UTC(),
	}
	if r := sub.Report; r != nil {
		panker, janker, errs := r.Panker, r.Janker, r.TotalErrors
		audit.Panker = &panker
		audit.Janker = &janker
		audit.TotalErrors = &errs
	}
	return audit
}
