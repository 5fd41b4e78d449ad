package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/okbills/internal/model"
)

// LegislatorStore handles database operations for legislators
type LegislatorStore struct {
	db *sql.DB
}

// NewLegislatorStore creates a new LegislatorStore
func NewLegislatorStore(db *sql.DB) *LegislatorStore {
	return &LegislatorStore{db: db}
}

// Upsert inserts or updates a legislator keyed by OpenStates ID.
// Email, phone and image URL are only written on first insert.
func (s *LegislatorStore) Upsert(ctx context.Context, l *model.Legislator) (inserted bool, err error) {
	query := `
		INSERT INTO legislators (openstates_id, name, party, chamber, district,
		                         image_url, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (openstates_id) DO UPDATE SET
			name = EXCLUDED.name,
			party = EXCLUDED.party,
			chamber = EXCLUDED.chamber,
			district = EXCLUDED.district,
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS inserted
	`

	err = s.db.QueryRowContext(ctx, query,
		l.OpenStatesID,
		l.Name,
		l.Party,
		l.Chamber,
		l.District,
		l.ImageURL,
		l.Email,
		l.Phone,
	).Scan(&l.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert legislator %s: %w", l.OpenStatesID, err)
	}

	return inserted, nil
}
