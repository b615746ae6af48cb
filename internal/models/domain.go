package models

import (
	"time"

	"github.com/google/uuid"
)

// Domain is one blacklisted domain. Collectors skip contacts whose
// website falls under a blacklisted domain.
type Domain struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Domain    string    `db:"domain" json:"domain"`
	Category  string    `db:"category" json:"category"`
	Reason    *string   `db:"reason" json:"reason"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
