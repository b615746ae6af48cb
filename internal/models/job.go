package models

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a job. Transitions are
// pending -> running -> completed/failed/cancelled, nothing leaves
// a terminal state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Job is one tracked execution of an external collector process.
// Jobs are never deleted; the table is the historical record.
type Job struct {
	ID            int64           `db:"id" json:"id"`
	Kind          string          `db:"kind" json:"kind"`
	Status        Status          `db:"status" json:"status"`
	ParamsJSON    json.RawMessage `db:"params_json" json:"parameters"`
	StartedAt     *time.Time      `db:"started_at" json:"started_at"`
	FinishedAt    *time.Time      `db:"finished_at" json:"finished_at"`
	ExitCode      *int            `db:"exit_code" json:"exit_code"`
	ErrorMessage  *string         `db:"error_message" json:"error_message"`
	LastSeq       int64           `db:"last_seq" json:"-"`
	LastHeartbeat *time.Time      `db:"last_heartbeat" json:"-"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`

	DurationSeconds *float64 `db:"-" json:"duration_seconds"`
}

// FillDuration computes DurationSeconds from the timestamps. Nil until
// the job has both started and finished.
func (j *Job) FillDuration() {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return
	}
	d := j.FinishedAt.Sub(*j.StartedAt).Seconds()
	j.DurationSeconds = &d
}
