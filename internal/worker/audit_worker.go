package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/psikotes-proctor/internal/config"
	"github.com/stemsi/psikotes-proctor/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

type runStore interface {
	BulkInsert(ctx context.Context, runs []*model.RunAudit) error
	Insert(ctx context.Context, run *model.RunAudit) error
}

type queueClient interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// AuditWorker drains the run audit queue into PostgreSQL in batches.
type AuditWorker struct {
	store        runStore
	rdb          queueClient
	log          zerolog.Logger
	batchSize    int
	batchTimeout time.Duration
	backoff      time.Duration
}

func NewAuditWorker(store runStore, rdb queueClient, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		store:        store,
		rdb:          rdb,
		log:          log.With().Str("component", "audit_worker").Logger(),
		batchSize:    BatchSize,
		batchTimeout: BatchTimeout,
		backoff:      2 * time.Second,
	}
}

// WithBatching overrides batch size and flush interval. Non-positive values keep the defaults.
func (w *AuditWorker) WithBatching(size int, timeout time.Duration) *AuditWorker {
	if size > 0 {
		w.batchSize = size
	}
	if timeout > 0 {
		w.batchTimeout = timeout
	}
	return w
}

func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Int("batch_size", w.batchSize).Msg("AuditWorker started")

	buffer := make([]*model.RunAudit, 0, w.batchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Flush on size or age
		if len(buffer) > 0 {
			if len(buffer) >= w.batchSize || time.Since(lastFlushTime) >= w.batchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		// 2. Graceful shutdown
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. BLPop blocks for PollTimeout and returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistRunsQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, backing off")
			w.sleep(ctx, w.backoff)
			continue
		}

		// 4. Decode
		if len(result) < 2 {
			continue
		}

		var run model.RunAudit
		if err := json.Unmarshal([]byte(result[1]), &run); err != nil {
			// Malformed JSON can never succeed. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed run audit")
			continue
		}
		buffer = append(buffer, &run)
	}
}

// flushSafe attempts bulk insert, then row-by-row insert, then requeue.
func (w *AuditWorker) flushSafe(ctx context.Context, batch []*model.RunAudit) {
	if err := w.store.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
		return
	}
	w.log.Debug().Int("count", len(batch)).Msg("Run audits persisted")
}

func (w *AuditWorker) fallbackInsert(ctx context.Context, batch []*model.RunAudit) {
	requeueList := make([]*model.RunAudit, 0)

	for _, run := range batch {
		if !run.Kind.Valid() {
			w.log.Error().Str("kind", string(run.Kind)).Msg("Dropping run audit with unknown test kind")
			continue
		}
		if err := w.store.Insert(ctx, run); err != nil {
			w.log.Error().Err(err).Str("id", run.ID.String()).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, run)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *AuditWorker) requeue(ctx context.Context, items []*model.RunAudit) {
	values := make([]interface{}, 0, len(items))
	for _, run := range items {
		data, _ := json.Marshal(run)
		values = append(values, data)
	}

	if err := w.rdb.RPush(ctx, config.WorkerKey.PersistRunsQueue, values...).Err(); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue run audits. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed run audits")
	// Avoid thrashing while the database is down.
	w.sleep(ctx, w.backoff)
}

func (w *AuditWorker) shutdown(buffer []*model.RunAudit) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}

func (w *AuditWorker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
