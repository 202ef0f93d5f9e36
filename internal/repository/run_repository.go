package repository

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/psikotes-proctor/internal/model"
)

var runColumns = []string{
	"id", "token_hash", "kind", "cause", "outcome",
	"violation_count", "elapsed_seconds", "answered_count",
	"panker", "janker", "total_errors", "recorded_at",
}

// RunRepository provides data access for the assessment_runs audit table.
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// BulkInsert writes a batch with COPY. Any bad row fails the whole batch.
func (r *RunRepository) BulkInsert(ctx context.Context, runs []*model.RunAudit) error {
	rows := make([][]interface{}, 0, len(runs))
	for _, a := range runs {
		rows = append(rows, runValues(a))
	}

	_, err := r.pool.CopyFrom(ctx, pgx.Identifier{"assessment_runs"}, runColumns, pgx.CopyFromRows(rows))
	return err
}

// Insert writes a single run. Re-inserting the same ID is a no-op.
func (r *RunRepository) Insert(ctx context.Context, a *model.RunAudit) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO assessment_runs (id, token_hash, kind, cause, outcome,
		     violation_count, elapsed_seconds, answered_count,
		     panker, janker, total_errors, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO NOTHING`,
		runValues(a)...,
	)
	return err
}

// ListPaginated retrieves runs newest first with optional kind and token filters.
func (r *RunRepository) ListPaginated(ctx context.Context, kind, tokenHash string, limit, offset int) ([]model.RunAudit, int, error) {
	where := ""
	var args []interface{}
	argIdx := 1

	if kind != "" {
		where += ` WHERE kind = $` + strconv.Itoa(argIdx)
		args = append(args, kind)
		argIdx++
	}
	if tokenHash != "" {
		if where == "" {
			where += ` WHERE`
		} else {
			where += ` AND`
		}
		where += ` token_hash = $` + strconv.Itoa(argIdx)
		args = append(args, tokenHash)
		argIdx++
	}

	// 1. Get total count
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM assessment_runs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// 2. Get paginated data
	query := `SELECT id, token_hash, kind, cause, outcome, violation_count, elapsed_seconds,
	                 answered_count, panker, janker, total_errors, recorded_at
	          FROM assessment_runs` + where +
		` ORDER BY recorded_at DESC LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	runs := make([]model.RunAudit, 0)
	for rows.Next() {
		var a model.RunAudit
		if err := rows.Scan(&a.ID, &a.TokenHash, &a.Kind, &a.Cause, &a.Outcome, &a.ViolationCount,
			&a.ElapsedSeconds, &a.AnsweredCount, &a.Panker, &a.Janker, &a.TotalErrors, &a.RecordedAt); err != nil {
			return nil, 0, err
		}
		runs = append(runs, a)
	}
	return runs, total, rows.Err()
}

func runValues(a *model.RunAudit) []interface{} {
	return []interface{}{
		a.ID, a.TokenHash, string(a.Kind), string(a.Cause), string(a.Outcome),
		a.ViolationCount, a.ElapsedSeconds, a.AnsweredCount,
		a.Panker, a.Janker, a.TotalErrors, a.RecordedAt,
	}
}
