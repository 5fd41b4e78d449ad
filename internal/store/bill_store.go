package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/okbills/internal/model"
	"github.com/lib/pq"
)

// SaveResult describes what a single bill save wrote
type SaveResult struct {
	BillID           int
	Change           *model.StageChange
	Actions          int
	Sponsorships     int
	UnlinkedSponsors int
}

// BillStore handles database operations for bills and their dependent rows
type BillStore struct {
	db *sql.DB
}

// NewBillStore creates a new BillStore
func NewBillStore(db *sql.DB) *BillStore {
	return &BillStore{db: db}
}

// SaveBill upserts a bill with its actions and sponsorships in one transaction.
// A history row is written only when a previously stored stage differs from b.Stage.
func (s *BillStore) SaveBill(ctx context.Context, b *model.Bill, actions []model.BillAction, sponsors []model.Sponsorship) (*SaveResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The CTE reads the row as it was before this statement's write, so the
	// old stage and the new values are captured atomically.
	upsertQuery := `
		WITH prev AS (
			SELECT stage FROM bills WHERE openstates_id = $1 FOR UPDATE
		)
		INSERT INTO bills (openstates_id, session, identifier, title, description,
		                   classification, subjects, stage, status, chamber,
		                   first_action_date, latest_action_date, latest_action_description,
		                   document_urls, openstates_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (openstates_id) DO UPDATE SET
			session = EXCLUDED.session,
			identifier = EXCLUDED.identifier,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			classification = EXCLUDED.classification,
			subjects = EXCLUDED.subjects,
			stage = EXCLUDED.stage,
			status = EXCLUDED.status,
			chamber = EXCLUDED.chamber,
			first_action_date = EXCLUDED.first_action_date,
			latest_action_date = EXCLUDED.latest_action_date,
			latest_action_description = EXCLUDED.latest_action_description,
			document_urls = EXCLUDED.document_urls,
			openstates_url = EXCLUDED.openstates_url,
			updated_at = NOW()
		RETURNING id, (SELECT stage FROM prev) AS old_stage
	`

	var oldStage sql.NullString
	err = tx.QueryRowContext(ctx, upsertQuery,
		b.OpenStatesID,
		b.Session,
		b.Identifier,
		b.Title,
		b.Description,
		b.Classification,
		pq.Array(b.Subjects),
		string(b.Stage),
		b.Status,
		b.Chamber,
		b.FirstActionDate,
		b.LatestActionDate,
		b.LatestActionDescription,
		pq.Array(b.DocumentURLs),
		b.OpenStatesURL,
	).Scan(&b.ID, &oldStage)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert bill %s: %w", b.OpenStatesID, err)
	}

	result := &SaveResult{BillID: b.ID}

	if oldStage.Valid && model.Stage(oldStage.String) != b.Stage {
		historyQuery := `
			INSERT INTO bill_history (bill_id, stage, status, previous_stage)
			VALUES ($1, $2, $3, $4)
		`
		_, err = tx.ExecContext(ctx, historyQuery, b.ID, string(b.Stage), b.Status, oldStage.String)
		if err != nil {
			return nil, fmt.Errorf("failed to insert history for bill %s: %w", b.OpenStatesID, err)
		}

		result.Change = &model.StageChange{
			BillID:        b.ID,
			Identifier:    b.Identifier,
			PreviousStage: model.Stage(oldStage.String),
			Stage:         b.Stage,
		}
	}

	actionQuery := `
		INSERT INTO bill_actions (bill_id, action_date, description, classification,
		                          chamber, action_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (bill_id, action_order) DO UPDATE SET
			action_date = EXCLUDED.action_date,
			description = EXCLUDED.description,
			classification = EXCLUDED.classification,
			chamber = EXCLUDED.chamber
	`
	for _, a := range actions {
		_, err = tx.ExecContext(ctx, actionQuery,
			b.ID,
			a.ActionDate,
			a.Description,
			a.Classification,
			a.Chamber,
			a.ActionOrder,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert action %d for bill %s: %w", a.ActionOrder, b.OpenStatesID, err)
		}
		result.Actions++
	}

	sponsorQuery := `
		INSERT INTO sponsorships (bill_id, legislator_id, sponsor_name, classification,
		                          entity_type, is_primary)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (bill_id, sponsor_name, classification) DO UPDATE SET
			legislator_id = EXCLUDED.legislator_id,
			entity_type = EXCLUDED.entity_type,
			is_primary = EXCLUDED.is_primary
	`
	for _, sp := range sponsors {
		legislatorID, err := findLegislatorByName(ctx, tx, sp.SponsorName)
		if err != nil {
			return nil, err
		}
		if !legislatorID.Valid {
			result.UnlinkedSponsors++
		}

		_, err = tx.ExecContext(ctx, sponsorQuery,
			b.ID,
			legislatorID,
			sp.SponsorName,
			sp.Classification,
			sp.EntityType,
			sp.IsPrimary,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert sponsorship %q for bill %s: %w", sp.SponsorName, b.OpenStatesID, err)
		}
		result.Sponsorships++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

// findLegislatorByName looks up a legislator by exact name.
// No match is not an error; the returned ID is simply invalid.
func findLegislatorByName(ctx context.Context, tx *sql.Tx, name string) (sql.NullInt64, error) {
	var id sql.NullInt64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM legislators WHERE name = $1 ORDER BY id LIMIT 1",
		name,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return sql.NullInt64{}, nil
	}
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("failed to look up legislator %q: %w", name, err)
	}
	return id, nil
}
