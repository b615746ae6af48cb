package store

import (
	"context"

	"kollektor/internal/database"
	"kollektor/internal/models"
)

// Logs is the Postgres-backed log collector.
type Logs struct {
	db *database.DB
}

func NewLogs(db *database.DB) *Logs {
	return &Logs{db: db}
}

// Append persists one classified line with the next per-job sequence
// number. The sequence counter lives on the jobs row and is bumped in
// the same statement as the insert, so the row lock serializes
// concurrent appenders and sequences stay gap-free. The line is durable
// when this returns; the supervisor writes, then continues reading.
func (s *Logs) Append(ctx context.Context, jobID int64, level, message string) error {
	_, err := s.db.ExecContext(ctx, `
		WITH bumped AS (
			UPDATE jobs SET last_seq = last_seq + 1
			WHERE id = $1
			RETURNING last_seq
		)
		INSERT INTO log_lines (job_id, seq, level, message)
		SELECT $1, last_seq, $2, $3 FROM bumped
	`, jobID, level, message)
	return err
}

// LinesSince returns all lines with seq > afterSeq, ascending. The sole
// read primitive of the streaming gateway.
func (s *Logs) LinesSince(ctx context.Context, jobID, afterSeq int64) ([]models.LogLine, error) {
	var lines []models.LogLine
	err := s.db.SelectContext(ctx, &lines, `
		SELECT * FROM log_lines
		WHERE job_id = $1 AND seq > $2
		ORDER BY seq
	`, jobID, afterSeq)
	return lines, err
}
