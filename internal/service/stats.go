package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jjenkins/okbills/internal/cache"
	"github.com/jjenkins/okbills/internal/model"
)

const summaryCacheKey = "stats:summary"

// StatsService calculates aggregate statistics over synced data
type StatsService struct {
	db    *sql.DB
	cache *cache.Cache
	ttl   time.Duration
}

// NewStatsService creates a new StatsService. A nil cache disables caching.
func NewStatsService(db *sql.DB, c *cache.Cache, ttl time.Duration) *StatsService {
	return &StatsService{db: db, cache: c, ttl: ttl}
}

// Summary represents database-wide totals and the stage distribution
type Summary struct {
	TotalBills       int                 `json:"total_bills"`
	TotalLegislators int                 `json:"total_legislators"`
	HistoryRows      int                 `json:"history_rows"`
	Sponsorships     int                 `json:"sponsorships"`
	UnlinkedSponsors int                 `json:"unlinked_sponsors"`
	StageCounts      map[model.Stage]int `json:"stage_counts"`
	CalculatedAt     time.Time           `json:"calculated_at"`
}

// RecentChange is a stage transition joined with its bill
type RecentChange struct {
	Identifier    string
	Title         string
	PreviousStage model.Stage
	Stage         model.Stage
	ChangedAt     time.Time
}

// CachedSummary returns a summary no older than the configured TTL
func (s *StatsService) CachedSummary(ctx context.Context) (*Summary, error) {
	if s.cache == nil || s.ttl <= 0 {
		return s.Summary(ctx)
	}
	return cache.GetOrCompute(ctx, s.cache, summaryCacheKey, s.ttl, s.Summary)
}

// Summary calculates fresh totals and the stage distribution
func (s *StatsService) Summary(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		StageCounts:  make(map[model.Stage]int),
		CalculatedAt: time.Now().UTC(),
	}

	totalsQuery := `
		SELECT
			(SELECT COUNT(*) FROM bills) AS total_bills,
			(SELECT COUNT(*) FROM legislators) AS total_legislators,
			(SELECT COUNT(*) FROM bill_history) AS history_rows,
			(SELECT COUNT(*) FROM sponsorships) AS sponsorships,
			(SELECT COUNT(*) FROM sponsorships WHERE legislator_id IS NULL) AS unlinked_sponsors
	`
	err := s.db.QueryRowContext(ctx, totalsQuery).Scan(
		&summary.TotalBills,
		&summary.TotalLegislators,
		&summary.HistoryRows,
		&summary.Sponsorships,
		&summary.UnlinkedSponsors,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT stage, COUNT(*) FROM bills GROUP BY stage`)
	if err != nil {
		return nil, fmt.Errorf("failed to count bills by stage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stage string
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stage count: %w", err)
		}
		summary.StageCounts[model.Stage(stage)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summary, nil
}

// RecentChanges retrieves the most recent stage transitions
func (s *StatsService) RecentChanges(ctx context.Context, limit int) ([]RecentChange, error) {
	query := `
		SELECT b.identifier, b.title, COALESCE(h.previous_stage, ''), h.stage, h.changed_at
		FROM bill_history h
		JOIN bills b ON b.id = h.bill_id
		ORDER BY h.changed_at DESC, h.id DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent stage changes: %w", err)
	}
	defer rows.Close()

	var changes []RecentChange
	for rows.Next() {
		var c RecentChange
		var prev, stage string
		if err := rows.Scan(&c.Identifier, &c.Title, &prev, &stage, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stage change: %w", err)
		}
		c.PreviousStage = model.Stage(prev)
		c.Stage = model.Stage(stage)
		changes = append(changes, c)
	}

	return changes, rows.Err()
}
