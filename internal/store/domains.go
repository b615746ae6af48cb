package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"kollektor/internal/database"
	"kollektor/internal/models"
)

// Domains is the blacklist store. Domains are stored lowercased and
// unique.
type Domains struct {
	db *database.DB
}

func NewDomains(db *database.DB) *Domains {
	return &Domains{db: db}
}

func (s *Domains) List(ctx context.Context) ([]models.Domain, error) {
	var domains []models.Domain
	err := s.db.SelectContext(ctx, &domains, `
		SELECT * FROM domains ORDER BY category, domain
	`)
	return domains, err
}

// Create inserts a domain. Returns (nil, nil) when the domain already
// exists.
func (s *Domains) Create(ctx context.Context, domain, category, reason, createdBy string) (*models.Domain, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if category == "" {
		category = "uncategorized"
	}
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	var row models.Domain
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO domains (id, domain, category, reason, created_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (domain) DO NOTHING
		RETURNING *
	`, uuid.New(), domain, category, reasonPtr, createdBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes a domain, reporting whether it existed.
func (s *Domains) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM domains WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
