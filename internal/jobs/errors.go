package jobs

import (
	"errors"
	"fmt"

	"kollektor/internal/models"
)

// ErrNotFound is returned for an unknown job id, or for a cancel of a
// job that is not running.
var ErrNotFound = errors.New("job not found")

// ErrTimeout marks a job that was killed by the wall-clock ceiling.
var ErrTimeout = errors.New("job timeout exceeded")

// ConflictError rejects a start while another job occupies the
// single-flight slot. Carries the blocking job so the operator can act
// on it instead of blindly retrying.
type ConflictError struct {
	Running *models.Job
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("job %d is already active", e.Running.ID)
}

// ValidationError rejects bad job parameters before any job record is
// created. Field names the first offending key.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Reason)
}

// SpawnError wraps a failure to launch the collector process (missing
// binary, permission error). Always finalized as an immediate failure.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn collector: %v", e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
