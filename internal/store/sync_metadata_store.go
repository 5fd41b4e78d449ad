package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/okbills/internal/model"
)

// SyncMetadataStore tracks the outcome of the latest run per sync type
type SyncMetadataStore struct {
	db *sql.DB
}

// NewSyncMetadataStore creates a new SyncMetadataStore
func NewSyncMetadataStore(db *sql.DB) *SyncMetadataStore {
	return &SyncMetadataStore{db: db}
}

// MarkStarted records a new attempt and resets the status to pending
func (s *SyncMetadataStore) MarkStarted(ctx context.Context, syncType model.SyncType) error {
	query := `
		INSERT INTO sync_metadata (sync_type, last_sync_attempt, status, error_message)
		VALUES ($1, NOW(), $2, NULL)
		ON CONFLICT (sync_type) DO UPDATE SET
			last_sync_attempt = EXCLUDED.last_sync_attempt,
			status = EXCLUDED.status,
			error_message = NULL
	`

	_, err := s.db.ExecContext(ctx, query, string(syncType), string(model.SyncStatusPending))
	if err != nil {
		return fmt.Errorf("failed to mark %s sync started: %w", syncType, err)
	}
	return nil
}

// MarkSucceeded records a successful run and its record count
func (s *SyncMetadataStore) MarkSucceeded(ctx context.Context, syncType model.SyncType, records int) error {
	query := `
		INSERT INTO sync_metadata (sync_type, last_sync_attempt, last_sync_success,
		                           status, records_synced, error_message)
		VALUES ($1, NOW(), NOW(), $2, $3, NULL)
		ON CONFLICT (sync_type) DO UPDATE SET
			last_sync_success = EXCLUDED.last_sync_success,
			status = EXCLUDED.status,
			records_synced = EXCLUDED.records_synced,
			error_message = NULL
	`

	_, err := s.db.ExecContext(ctx, query, string(syncType), string(model.SyncStatusSuccess), records)
	if err != nil {
		return fmt.Errorf("failed to mark %s sync succeeded: %w", syncType, err)
	}
	return nil
}

// MarkFailed records a failed run with its error message
func (s *SyncMetadataStore) MarkFailed(ctx context.Context, syncType model.SyncType, message string) error {
	query := `
		INSERT INTO sync_metadata (sync_type, last_sync_attempt, status, error_message)
		VALUES ($1, NOW(), $2, $3)
		ON CONFLICT (sync_type) DO UPDATE SET
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message
	`

	_, err := s.db.ExecContext(ctx, query, string(syncType), string(model.SyncStatusError), message)
	if err != nil {
		return fmt.Errorf("failed to mark %s sync failed: %w", syncType, err)
	}
	return nil
}

// GetAll retrieves metadata for every sync type
func (s *SyncMetadataStore) GetAll(ctx context.Context) ([]model.SyncMetadata, error) {
	query := `
		SELECT sync_type, last_sync_attempt, last_sync_success, status,
		       records_synced, error_message
		FROM sync_metadata
		ORDER BY sync_type
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync metadata: %w", err)
	}
	defer rows.Close()

	var entries []model.SyncMetadata
	for rows.Next() {
		var m model.SyncMetadata
		var syncType, status string
		err := rows.Scan(
			&syncType,
			&m.LastSyncAttempt,
			&m.LastSyncSuccess,
			&status,
			&m.RecordsSynced,
			&m.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync metadata: %w", err)
		}
		m.SyncType = model.SyncType(syncType)
		m.Status = model.SyncStatus(status)
		entries = append(entries, m)
	}

	return entries, rows.Err()
}
