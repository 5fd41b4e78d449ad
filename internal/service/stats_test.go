package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jjenkins/okbills/internal/cache"
	"github.com/jjenkins/okbills/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	totalsSQL     = regexp.QuoteMeta("(SELECT COUNT(*) FROM bills) AS total_bills")
	stageCountSQL = regexp.QuoteMeta("SELECT stage, COUNT(*) FROM bills GROUP BY stage")
)

func expectSummary(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(totalsSQL).
		WillReturnRows(sqlmock.NewRows([]string{
			"total_bills", "total_legislators", "history_rows", "sponsorships", "unlinked_sponsors",
		}).AddRow(12, 149, 5, 30, 4))
	mock.ExpectQuery(stageCountSQL).
		WillReturnRows(sqlmock.NewRows([]string{"stage", "count"}).
			AddRow("introduced", 7).
			AddRow("committee", 3).
			AddRow("signed", 2))
}

func TestStatsService_Summary(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectSummary(mock)

	summary, err := NewStatsService(db, nil, 0).Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, summary.TotalBills)
	assert.Equal(t, 149, summary.TotalLegislators)
	assert.Equal(t, 5, summary.HistoryRows)
	assert.Equal(t, 4, summary.UnlinkedSponsors)
	assert.Equal(t, 7, summary.StageCounts[model.StageIntroduced])
	assert.Equal(t, 2, summary.StageCounts[model.StageSigned])
	assert.Zero(t, summary.StageCounts[model.StageVetoed])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_CachedSummaryQueriesOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectSummary(mock)

	c := cache.New(cache.NewMemoryBackend(), zaptest.NewLogger(t).Sugar())
	svc := NewStatsService(db, c, time.Minute)
	ctx := context.Background()

	first, err := svc.CachedSummary(ctx)
	require.NoError(t, err)

	second, err := svc.CachedSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.TotalBills, second.TotalBills)
	assert.Equal(t, 3, second.StageCounts[model.StageCommittee])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_RecentChanges(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	changedAt := time.Date(2025, 4, 2, 15, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bill_history h")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"identifier", "title", "previous_stage", "stage", "changed_at"}).
			AddRow("HB 1001", "An Act relating to schools", "committee", "committee_approved", changedAt))

	changes, err := NewStatsService(db, nil, 0).RecentChanges(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "HB 1001", changes[0].Identifier)
	assert.Equal(t, model.StageCommittee, changes[0].PreviousStage)
	assert.Equal(t, model.StageCommitteeApproved, changes[0].Stage)
	assert.Equal(t, changedAt, changes[0].ChangedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
