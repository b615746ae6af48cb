package models

import "time"

// Log levels. Derived from the captured line by substring matching,
// presentation only and never consulted by the job state machine.
const (
	LevelDebug   = "DEBUG"
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
	LevelSuccess = "SUCCESS"
)

// LogLine is one captured line of collector output. Seq is gap-free and
// strictly increasing per job; lines are immutable once written.
type LogLine struct {
	ID        int64     `db:"id" json:"-"`
	JobID     int64     `db:"job_id" json:"job_id"`
	Seq       int64     `db:"seq" json:"seq"`
	Level     string    `db:"level" json:"level"`
	Message   string    `db:"message" json:"message"`
	Timestamp time.Time `db:"created_at" json:"timestamp"`
}
