package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"kollektor/internal/database"
	"kollektor/internal/models"
)

// Checkpoints is the console's view of the per-unit progress table the
// collector processes maintain. The console reads, seeds and resets
// rows; it never marks a unit done, that is the collectors' contract.
type Checkpoints struct {
	db *database.DB
}

func NewCheckpoints(db *database.DB) *Checkpoints {
	return &Checkpoints{db: db}
}

// Stats aggregates progress for one collector kind.
func (s *Checkpoints) Stats(ctx context.Context, kind string) (*models.CheckpointStats, error) {
	var stats models.CheckpointStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total,
			COUNT(processed_at) AS processed,
			COUNT(error_message) AS errors
		FROM checkpoints
		WHERE kind = $1
	`, kind)
	if err != nil {
		return nil, err
	}
	stats.Kind = kind
	stats.Pending = stats.Total - stats.Processed
	return &stats, nil
}

// Pending lists unprocessed units for a kind, optionally narrowed to a
// unit-key prefix, in unit order.
func (s *Checkpoints) Pending(ctx context.Context, kind, prefix string, limit int) ([]models.Checkpoint, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query := `
		SELECT * FROM checkpoints
		WHERE kind = $1 AND processed_at IS NULL
	`
	args := []interface{}{kind}
	if prefix != "" {
		query += " AND unit LIKE $2"
		args = append(args, prefix+"%")
	}
	query += fmt.Sprintf(" ORDER BY unit LIMIT %d", limit)

	var checkpoints []models.Checkpoint
	err := s.db.SelectContext(ctx, &checkpoints, query, args...)
	return checkpoints, err
}

// Get returns the checkpoint for (unit, kind), or nil.
func (s *Checkpoints) Get(ctx context.Context, unit, kind string) (*models.Checkpoint, error) {
	var cp models.Checkpoint
	err := s.db.GetContext(ctx, &cp, `
		SELECT * FROM checkpoints WHERE unit = $1 AND kind = $2
	`, unit, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// Seed registers unit keys for a kind without marking them processed,
// so a fresh kind starts with its full pending set. Existing rows are
// left untouched.
func (s *Checkpoints) Seed(ctx context.Context, kind string, units []string) (int64, error) {
	clean := make([]string, 0, len(units))
	for _, u := range units {
		u = strings.TrimSpace(u)
		if u != "" {
			clean = append(clean, u)
		}
	}
	if len(clean) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (unit, kind)
		SELECT unnest($1::text[]), $2
		ON CONFLICT (unit, kind) DO NOTHING
	`, pq.Array(clean), kind)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Reset clears the done markers so units are reprocessed on the next
// run (the force flow). Scope narrows by unit prefix and, with
// errorsOnly, to units whose last attempt failed.
func (s *Checkpoints) Reset(ctx context.Context, kind, prefix string, errorsOnly bool) (int64, error) {
	query := `
		UPDATE checkpoints
		SET processed_at = NULL, result_count = NULL, error_message = NULL
		WHERE kind = $1
	`
	args := []interface{}{kind}
	if prefix != "" {
		query += fmt.Sprintf(" AND unit LIKE $%d", len(args)+1)
		args = append(args, prefix+"%")
	}
	if errorsOnly {
		query += " AND error_message IS NOT NULL"
	} else {
		query += " AND (processed_at IS NOT NULL OR error_message IS NOT NULL)"
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
