package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"kollektor/internal/database"
	"kollektor/internal/models"
)

// Advisory lock key guarding the single-flight check-and-create. One
// fixed key: the slot is global, not per kind.
const singleFlightLockKey = 7420001

// Jobs is the Postgres-backed job store.
type Jobs struct {
	db *database.DB
}

func NewJobs(db *database.DB) *Jobs {
	return &Jobs{db: db}
}

// CreateExclusive takes a transaction-level advisory lock, checks for
// an active job and inserts the new pending row in the same critical
// section. Two concurrent starts can never both slip into the slot, and
// the invariant is durable: it lives in the jobs table, not in memory.
func (s *Jobs) CreateExclusive(ctx context.Context, kind string, params json.RawMessage) (*models.Job, *models.Job, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", singleFlightLockKey); err != nil {
		return nil, nil, err
	}

	var blocking models.Job
	err = tx.GetContext(ctx, &blocking, `
		SELECT * FROM jobs
		WHERE status IN ('pending', 'running')
		ORDER BY id
		LIMIT 1
	`)
	if err == nil {
		return nil, &blocking, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, err
	}

	var job models.Job
	err = tx.GetContext(ctx, &job, `
		INSERT INTO jobs (kind, status, params_json)
		VALUES ($1, 'pending', $2)
		RETURNING *
	`, kind, params)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &job, nil, nil
}

// Get returns the job, or nil when unknown.
func (s *Jobs) Get(ctx context.Context, id int64) (*models.Job, error) {
	var job models.Job
	err := s.db.GetContext(ctx, &job, "SELECT * FROM jobs WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *Jobs) MarkRunning(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'running', started_at = $2, last_heartbeat = $2
		WHERE id = $1 AND status = 'pending'
	`, id, at)
	return err
}

// Finalize moves a job into a terminal state. Conditional on the row
// not being terminal yet, which makes duplicate calls no-ops.
func (s *Jobs) Finalize(ctx context.Context, id int64, status models.Status, exitCode *int, errMsg *string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2, exit_code = $3, error_message = $4, finished_at = $5
		WHERE id = $1 AND status IN ('pending', 'running')
	`, id, status, exitCode, errMsg, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Jobs) Running(ctx context.Context) (*models.Job, error) {
	var job models.Job
	err := s.db.GetContext(ctx, &job, "SELECT * FROM jobs WHERE status = 'running' ORDER BY id LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *Jobs) ListActive(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	err := s.db.SelectContext(ctx, &jobs, `
		SELECT * FROM jobs WHERE status IN ('pending', 'running') ORDER BY id
	`)
	return jobs, err
}

func (s *Jobs) Recent(ctx context.Context, limit int) ([]models.Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var jobs []models.Job
	err := s.db.SelectContext(ctx, &jobs, `
		SELECT * FROM jobs ORDER BY created_at DESC, id DESC LIMIT $1
	`, limit)
	return jobs, err
}

func (s *Jobs) Heartbeat(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET last_heartbeat = $2 WHERE id = $1 AND status = 'running'
	`, id, at)
	return err
}
