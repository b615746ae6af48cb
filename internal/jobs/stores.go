package jobs

import (
	"context"
	"encoding/json"
	"time"

	"kollektor/internal/models"
)

// JobStore is the persistence contract the controller runs on. The
// Postgres implementation lives in internal/store; tests substitute an
// in-memory one.
type JobStore interface {
	// CreateExclusive atomically checks that no job is active
	// (pending or running) and creates a new pending job. When the
	// slot is taken it returns the blocking job instead.
	CreateExclusive(ctx context.Context, kind string, params json.RawMessage) (created *models.Job, blocking *models.Job, err error)

	// Get returns the job, or nil when the id is unknown.
	Get(ctx context.Context, id int64) (*models.Job, error)

	// MarkRunning transitions a pending job to running and records
	// the start time.
	MarkRunning(ctx context.Context, id int64, at time.Time) error

	// Finalize moves the job to a terminal status. It only applies to
	// jobs that are not already terminal and reports whether anything
	// changed, which makes duplicate finalize calls a no-op.
	Finalize(ctx context.Context, id int64, status models.Status, exitCode *int, errMsg *string, at time.Time) (bool, error)

	// Running returns the single running job, or nil.
	Running(ctx context.Context) (*models.Job, error)

	// ListActive returns all pending and running jobs.
	ListActive(ctx context.Context) ([]models.Job, error)

	// Recent returns the newest jobs, newest first.
	Recent(ctx context.Context, limit int) ([]models.Job, error)

	// Heartbeat refreshes the liveness marker of a running job.
	Heartbeat(ctx context.Context, id int64, at time.Time) error
}

// LogStore persists captured output lines. Appends must be durable
// before the caller proceeds to the next line, and must assign gap-free,
// strictly increasing per-job sequence numbers.
type LogStore interface {
	Append(ctx context.Context, jobID int64, level, message string) error
	// LinesSince returns all lines with seq > afterSeq, ascending.
	LinesSince(ctx context.Context, jobID, afterSeq int64) ([]models.LogLine, error)
}
