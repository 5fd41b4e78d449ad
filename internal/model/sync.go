package model

import (
	"database/sql"
)

// SyncType identifies a kind of synchronized data
type SyncType string

const (
	SyncTypeBills       SyncType = "bills"
	SyncTypeLegislators SyncType = "legislators"
)

// SyncStatus is the outcome of the most recent sync attempt
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusError   SyncStatus = "error"
)

// SyncMetadata tracks the most recent run of one sync type
type SyncMetadata struct {
	SyncType        SyncType
	LastSyncAttempt sql.NullTime
	LastSyncSuccess sql.NullTime
	Status          SyncStatus
	RecordsSynced   int
	ErrorMessage    sql.NullString
}
