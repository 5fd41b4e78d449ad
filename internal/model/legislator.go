package model

import (
	"database/sql"
	"time"
)

// Legislator represents a member of the legislature
type Legislator struct {
	ID           int
	OpenStatesID string
	Name         string
	Party        sql.NullString
	Chamber      sql.NullString
	District     sql.NullString
	ImageURL     sql.NullString
	Email        sql.NullString
	Phone        sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LegislatorMeta represents a person record from the OpenStates API
type LegislatorMeta struct {
	OpenStatesID string
	Name         string
	Party        string
	Chamber      string
	District     string
	ImageURL     string
	Email        string
	Phone        string
}

// LegislatorPage is a single page of people from the OpenStates API
type LegislatorPage struct {
	Legislators []LegislatorMeta
	Pagination  *Pagination
}

// Pagination is the paging block returned by the OpenStates API
type Pagination struct {
	Page       int
	MaxPage    int
	PerPage    int
	TotalItems int
}

// HasNext reports whether another page follows this one
func (p *Pagination) HasNext() bool {
	if p == nil {
		return false
	}
	return p.HasNextAfter(p.Page)
}

// HasNextAfter reports whether another page follows the requested page.
// The reported page number is preferred; current is used when it is missing.
func (p *Pagination) HasNextAfter(current int) bool {
	if p == nil {
		return false
	}
	page := p.Page
	if page <= 0 {
		page = current
	}
	return page < p.MaxPage
}
