package model

import (
	"database/sql"
	"time"
)

// Bill represents the current state of a tracked bill
type Bill struct {
	ID                      int
	OpenStatesID            string
	Session                 string
	Identifier              string
	Title                   string
	Description             sql.NullString
	Classification          sql.NullString
	Subjects                []string
	Stage                   Stage
	Status                  sql.NullString
	Chamber                 sql.NullString
	FirstActionDate         sql.NullTime
	LatestActionDate        sql.NullTime
	LatestActionDescription sql.NullString
	DocumentURLs            []string
	OpenStatesURL           sql.NullString
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// BillAction is a single recorded legislative event for a bill
type BillAction struct {
	ID             int
	BillID         int
	ActionDate     sql.NullTime
	Description    string
	Classification sql.NullString
	Chamber        sql.NullString
	ActionOrder    int
}

// BillHistory records a detected stage transition
type BillHistory struct {
	ID            int
	BillID        int
	Stage         Stage
	Status        sql.NullString
	PreviousStage sql.NullString
	ChangedAt     time.Time
}

// StageChange is returned by the bill store when a save moved a bill to a new stage
type StageChange struct {
	BillID        int
	Identifier    string
	PreviousStage Stage
	Stage         Stage
}

// Sponsorship links a bill to a sponsor name and, when resolvable, a legislator
type Sponsorship struct {
	ID             int
	BillID         int
	LegislatorID   sql.NullInt64
	SponsorName    string
	Classification string
	EntityType     sql.NullString
	IsPrimary      bool
}

// BillMeta represents a bill record from the OpenStates API
type BillMeta struct {
	OpenStatesID            string
	Session                 string
	Identifier              string
	Title                   string
	Description             string
	Classification          []string
	Subjects                []string
	Chamber                 string
	FirstActionDate         string
	LatestActionDate        string
	LatestActionDescription string
	OpenStatesURL           string
	DocumentURLs            []string
	Actions                 []ActionMeta
	Sponsorships            []SponsorshipMeta
}

// ActionMeta represents a bill action from the OpenStates API
type ActionMeta struct {
	Date           string
	Description    string
	Classification []string
	Chamber        string
	Order          int
}

// SponsorshipMeta represents a bill sponsor from the OpenStates API
type SponsorshipMeta struct {
	Name           string
	Classification string
	EntityType     string
	Primary        bool
}

// BillPage is a single page of bills from the OpenStates API
type BillPage struct {
	Bills      []BillMeta
	Pagination *Pagination
}
