package models

import "time"

// Checkpoint tracks whether one work unit (a postal code) has been
// processed by a given collector kind. The rows are written by the
// collector processes themselves; the console only reads, seeds and
// resets them. Unique on (unit, kind).
type Checkpoint struct {
	ID           int64      `db:"id" json:"id"`
	Unit         string     `db:"unit" json:"unit"`
	Kind         string     `db:"kind" json:"kind"`
	ProcessedAt  *time.Time `db:"processed_at" json:"processed_at"`
	ResultCount  *int       `db:"result_count" json:"result_count"`
	ErrorMessage *string    `db:"error_message" json:"error_message"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Done reports whether the unit is finished for this kind and will be
// skipped on subsequent runs unless the operator forces reprocessing.
func (c *Checkpoint) Done() bool {
	return c.ProcessedAt != nil && c.ErrorMessage == nil
}

// CheckpointStats aggregates checkpoint progress for one collector kind.
type CheckpointStats struct {
	Kind      string `json:"kind"`
	Total     int    `db:"total" json:"total"`
	Processed int    `db:"processed" json:"processed"`
	Pending   int    `json:"pending"`
	Errors    int    `db:"errors" json:"errors"`
}
