package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jjenkins/okbills/internal/model"
	"github.com/jjenkins/okbills/internal/store"
	"go.uber.org/zap"
)

// Source is the paginated legislative data API
type Source interface {
	FetchLegislators(ctx context.Context, page int) (*model.LegislatorPage, error)
	FetchBills(ctx context.Context, page int) (*model.BillPage, error)
}

// LegislatorWriter persists legislators keyed by external ID
type LegislatorWriter interface {
	Upsert(ctx context.Context, l *model.Legislator) (inserted bool, err error)
}

// BillWriter persists a bill and its dependent rows as one unit
type BillWriter interface {
	SaveBill(ctx context.Context, b *model.Bill, actions []model.BillAction, sponsors []model.Sponsorship) (*store.SaveResult, error)
}

// MetadataRecorder tracks per-sync-type outcomes
type MetadataRecorder interface {
	MarkStarted(ctx context.Context, syncType model.SyncType) error
	MarkSucceeded(ctx context.Context, syncType model.SyncType, records int) error
	MarkFailed(ctx context.Context, syncType model.SyncType, message string) error
}

// SyncOptions bounds how many pages each sync may fetch
type SyncOptions struct {
	LegislatorPageCap int
	BillPageCap       int
}

// LegislatorStats tracks legislator sync statistics
type LegislatorStats struct {
	Pages    int
	Fetched  int
	Inserted int
	Updated  int
}

// BillStats tracks bill sync statistics
type BillStats struct {
	Pages            int
	Bills            int
	StageChanges     int
	Actions          int
	Sponsorships     int
	UnlinkedSponsors int
}

// RunStats aggregates a full sync run
type RunStats struct {
	Legislators *LegislatorStats
	Bills       *BillStats
	Duration    time.Duration
}

// Syncer pulls legislators and bills from the source into storage
type Syncer struct {
	source      Source
	legislators LegislatorWriter
	bills       BillWriter
	metadata    MetadataRecorder
	opts        SyncOptions
	log         *zap.SugaredLogger
}

// NewSyncer creates a new Syncer
func NewSyncer(source Source, legislators LegislatorWriter, bills BillWriter, metadata MetadataRecorder, opts SyncOptions, log *zap.SugaredLogger) *Syncer {
	return &Syncer{
		source:      source,
		legislators: legislators,
		bills:       bills,
		metadata:    metadata,
		opts:        opts,
		log:         log,
	}
}

// Run syncs legislators and then bills. Bills are skipped if the legislator
// sync fails, since sponsorships link against legislator rows.
func (s *Syncer) Run(ctx context.Context) (*RunStats, error) {
	start := time.Now()
	stats := &RunStats{}

	// Sync legislators
	s.log.Infow("starting legislator sync")
	legislatorStats, err := s.SyncLegislators(ctx)
	stats.Legislators = legislatorStats
	if err != nil {
		stats.Duration = time.Since(start)
		return stats, fmt.Errorf("legislator sync failed: %w", err)
	}

	// Sync bills
	s.log.Infow("starting bill sync")
	billStats, err := s.SyncBills(ctx)
	stats.Bills = billStats
	stats.Duration = time.Since(start)
	if err != nil {
		return stats, fmt.Errorf("bill sync failed: %w", err)
	}

	return stats, nil
}

// SyncLegislators fetches every legislator page and upserts each record
func (s *Syncer) SyncLegislators(ctx context.Context) (*LegislatorStats, error) {
	stats := &LegislatorStats{}

	if err := s.metadata.MarkStarted(ctx, model.SyncTypeLegislators); err != nil {
		return stats, err
	}

	if err := s.syncLegislatorPages(ctx, stats); err != nil {
		s.recordFailure(ctx, model.SyncTypeLegislators, err)
		return stats, err
	}

	if err := s.metadata.MarkSucceeded(ctx, model.SyncTypeLegislators, stats.Fetched); err != nil {
		return stats, err
	}

	s.log.Infow("legislator sync complete",
		"pages", stats.Pages,
		"fetched", stats.Fetched,
		"inserted", stats.Inserted,
		"updated", stats.Updated,
	)
	return stats, nil
}

func (s *Syncer) syncLegislatorPages(ctx context.Context, stats *LegislatorStats) error {
	for page := 1; page <= s.opts.LegislatorPageCap; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Fetch page
		result, err := s.source.FetchLegislators(ctx, page)
		if err != nil {
			return err
		}
		stats.Pages++

		// An empty page means the source has nothing more
		if len(result.Legislators) == 0 {
			return nil
		}

		s.log.Debugw("fetched legislator page", "page", page, "count", len(result.Legislators))

		// Upsert each legislator
		for _, meta := range result.Legislators {
			inserted, err := s.legislators.Upsert(ctx, buildLegislator(meta))
			if err != nil {
				return err
			}
			stats.Fetched++
			if inserted {
				stats.Inserted++
			} else {
				stats.Updated++
			}
		}

		// Stop on the last reported page
		if !result.Pagination.HasNextAfter(page) {
			return nil
		}
		if page == s.opts.LegislatorPageCap {
			s.log.Warnw("legislator page cap reached", "cap", page, "max_page", result.Pagination.MaxPage)
		}
	}
	return nil
}

// SyncBills fetches bill pages and saves each bill with its actions and sponsors.
// The first failure aborts the remaining pages.
func (s *Syncer) SyncBills(ctx context.Context) (*BillStats, error) {
	stats := &BillStats{}

	if err := s.metadata.MarkStarted(ctx, model.SyncTypeBills); err != nil {
		return stats, err
	}

	if err := s.syncBillPages(ctx, stats); err != nil {
		s.recordFailure(ctx, model.SyncTypeBills, err)
		return stats, err
	}

	if err := s.metadata.MarkSucceeded(ctx, model.SyncTypeBills, stats.Bills); err != nil {
		return stats, err
	}

	s.log.Infow("bill sync complete",
		"pages", stats.Pages,
		"bills", stats.Bills,
		"stage_changes", stats.StageChanges,
		"actions", stats.Actions,
		"sponsorships", stats.Sponsorships,
		"unlinked_sponsors", stats.UnlinkedSponsors,
	)
	return stats, nil
}

func (s *Syncer) syncBillPages(ctx context.Context, stats *BillStats) error {
	for page := 1; page <= s.opts.BillPageCap; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Fetch page
		result, err := s.source.FetchBills(ctx, page)
		if err != nil {
			return err
		}
		stats.Pages++

		// An empty page means the source has nothing more
		if len(result.Bills) == 0 {
			return nil
		}

		progress := fmt.Sprintf("[%d/%d]", page, pageTotal(result.Pagination, page))
		s.log.Infow("processing bill page", "progress", progress, "count", len(result.Bills))

		// Save each bill in its own transaction
		for _, meta := range result.Bills {
			if err := s.syncBill(ctx, meta, stats); err != nil {
				return err
			}
		}

		// Stop on the last reported page
		if !result.Pagination.HasNextAfter(page) {
			return nil
		}
		if page == s.opts.BillPageCap {
			s.log.Warnw("bill page cap reached", "cap", page, "max_page", result.Pagination.MaxPage)
		}
	}
	return nil
}

// syncBill classifies and saves a single bill
func (s *Syncer) syncBill(ctx context.Context, meta model.BillMeta, stats *BillStats) error {
	stage := ClassifyStage(meta.Actions)
	bill := buildBill(meta, stage)

	result, err := s.bills.SaveBill(ctx, bill, buildActions(meta.Actions), buildSponsorships(meta.Sponsorships))
	if err != nil {
		return fmt.Errorf("failed to save bill %s (%s): %w", meta.Identifier, meta.OpenStatesID, err)
	}

	stats.Bills++
	stats.Actions += result.Actions
	stats.Sponsorships += result.Sponsorships
	stats.UnlinkedSponsors += result.UnlinkedSponsors

	if result.Change != nil {
		stats.StageChanges++
		s.log.Infow("bill stage changed",
			"bill", meta.Identifier,
			"from", result.Change.PreviousStage,
			"to", result.Change.Stage,
		)
	}

	return nil
}

// recordFailure writes the error to sync metadata even if ctx was cancelled
func (s *Syncer) recordFailure(ctx context.Context, syncType model.SyncType, cause error) {
	s.log.Errorw("sync failed", "type", syncType, "error", cause)
	if err := s.metadata.MarkFailed(context.WithoutCancel(ctx), syncType, cause.Error()); err != nil {
		s.log.Errorw("failed to record sync failure", "type", syncType, "error", err)
	}
}

// PrintSummary logs the aggregate result of a run
func (s *Syncer) PrintSummary(stats *RunStats) {
	fields := []interface{}{"duration", stats.Duration.Round(time.Millisecond).String()}
	if l := stats.Legislators; l != nil {
		fields = append(fields,
			"legislators", l.Fetched,
			"legislators_inserted", l.Inserted,
			"legislators_updated", l.Updated,
		)
	}
	if b := stats.Bills; b != nil {
		fields = append(fields,
			"bills", b.Bills,
			"bill_pages", b.Pages,
			"stage_changes", b.StageChanges,
			"actions", b.Actions,
			"sponsorships", b.Sponsorships,
			"unlinked_sponsors", b.UnlinkedSponsors,
		)
	}
	s.log.Infow("=== Sync Summary ===", fields...)
}

func pageTotal(p *model.Pagination, current int) int {
	if p == nil || p.MaxPage < current {
		return current
	}
	return p.MaxPage
}

func buildLegislator(meta model.LegislatorMeta) *model.Legislator {
	return &model.Legislator{
		OpenStatesID: meta.OpenStatesID,
		Name:         meta.Name,
		Party:        nullString(meta.Party),
		Chamber:      nullString(chamberName(meta.Chamber)),
		District:     nullString(meta.District),
		ImageURL:     nullString(meta.ImageURL),
		Email:        nullString(meta.Email),
		Phone:        nullString(meta.Phone),
	}
}

func buildBill(meta model.BillMeta, stage model.Stage) *model.Bill {
	status := meta.LatestActionDescription
	if status == "" && len(meta.Actions) > 0 {
		status = meta.Actions[len(meta.Actions)-1].Description
	}

	var classification string
	if len(meta.Classification) > 0 {
		classification = meta.Classification[0]
	}

	return &model.Bill{
		OpenStatesID:            meta.OpenStatesID,
		Session:                 meta.Session,
		Identifier:              meta.Identifier,
		Title:                   meta.Title,
		Description:             nullString(meta.Description),
		Classification:          nullString(classification),
		Subjects:                nonNil(meta.Subjects),
		Stage:                   stage,
		Status:                  nullString(status),
		Chamber:                 nullString(chamberName(meta.Chamber)),
		FirstActionDate:         parseDate(meta.FirstActionDate),
		LatestActionDate:        parseDate(meta.LatestActionDate),
		LatestActionDescription: nullString(meta.LatestActionDescription),
		DocumentURLs:            nonNil(meta.DocumentURLs),
		OpenStatesURL:           nullString(meta.OpenStatesURL),
	}
}

func buildActions(actions []model.ActionMeta) []model.BillAction {
	rows := make([]model.BillAction, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, model.BillAction{
			ActionDate:     parseDate(a.Date),
			Description:    a.Description,
			Classification: nullString(ActionClassification(a)),
			Chamber:        nullString(chamberName(a.Chamber)),
			ActionOrder:    a.Order,
		})
	}
	return rows
}

func buildSponsorships(sponsors []model.SponsorshipMeta) []model.Sponsorship {
	rows := make([]model.Sponsorship, 0, len(sponsors))
	for _, sp := range sponsors {
		name := strings.TrimSpace(sp.Name)
		if name == "" {
			continue
		}
		rows = append(rows, model.Sponsorship{
			SponsorName:    name,
			Classification: sp.Classification,
			EntityType:     nullString(sp.EntityType),
			IsPrimary:      sp.Primary || strings.EqualFold(sp.Classification, "primary"),
		})
	}
	return rows
}

// chamberName maps OpenStates organization classifications to chamber names
func chamberName(classification string) string {
	switch strings.ToLower(classification) {
	case "lower":
		return "House"
	case "upper":
		return "Senate"
	default:
		return classification
	}
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseDate returns an invalid NullTime for empty or malformed input
func parseDate(s string) sql.NullTime {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullTime{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return sql.NullTime{Time: t, Valid: true}
		}
	}
	return sql.NullTime{}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
