// Package render formats sync state and statistics as terminal tables.
package render

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/jjenkins/okbills/internal/model"
	"github.com/jjenkins/okbills/internal/service"
	"github.com/samber/lo"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	successStyle  = color.New(color.FgGreen)
	errorStyle    = color.New(color.FgRed)
	pendingStyle  = color.New(color.FgYellow)
	terminalStyle = color.New(color.Bold)
	faintStyle    = color.New(color.Faint)
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	return t
}

// SyncStatus renders one row per sync type
func SyncStatus(out io.Writer, entries []model.SyncMetadata) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No syncs have run yet")
		return
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"Type", "Status", "Last Attempt", "Last Success", "Records", "Error"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			string(e.SyncType),
			statusText(e.Status),
			formatTime(e.LastSyncAttempt.Time, e.LastSyncAttempt.Valid),
			formatTime(e.LastSyncSuccess.Time, e.LastSyncSuccess.Valid),
			e.RecordsSynced,
			e.ErrorMessage.String,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, WidthMax: 60},
	})
	t.Render()
}

// Summary renders totals followed by the per-stage distribution in lifecycle order
func Summary(out io.Writer, s *service.Summary) {
	totals := newTable(out)
	totals.AppendRows([]table.Row{
		{"Bills", s.TotalBills},
		{"Legislators", s.TotalLegislators},
		{"Stage changes", s.HistoryRows},
		{"Sponsorships", s.Sponsorships},
		{"Unlinked sponsors", s.UnlinkedSponsors},
	})
	totals.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	totals.Render()

	stages := newTable(out)
	stages.AppendHeader(table.Row{"Stage", "Bills", "Share"})
	for _, stage := range model.AllStages() {
		count := s.StageCounts[stage]
		stages.AppendRow(table.Row{stageText(stage), count, share(count, s.TotalBills)})
	}
	unknown := lo.Keys(lo.OmitBy(s.StageCounts, func(stage model.Stage, _ int) bool {
		return stage.Valid()
	}))
	slices.Sort(unknown)
	for _, stage := range unknown {
		count := s.StageCounts[stage]
		stages.AppendRow(table.Row{faintStyle.Sprint(string(stage)), count, share(count, s.TotalBills)})
	}
	stages.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	stages.Render()

	fmt.Fprintln(out, faintStyle.Sprintf("calculated %s", s.CalculatedAt.Local().Format(timeLayout)))
}

// RecentChanges renders the latest stage transitions
func RecentChanges(out io.Writer, changes []service.RecentChange) {
	if len(changes) == 0 {
		fmt.Fprintln(out, "No stage changes recorded")
		return
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"Changed", "Bill", "From", "To", "Title"})
	for _, c := range changes {
		t.AppendRow(table.Row{
			c.ChangedAt.Local().Format(timeLayout),
			c.Identifier,
			string(c.PreviousStage),
			stageText(c.Stage),
			c.Title,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 5, WidthMax: 50}})
	t.Render()
}

// Classification renders each action with its stored tag and the inferred stage
func Classification(out io.Writer, actions []model.ActionMeta, stage model.Stage) {
	t := newTable(out)
	t.AppendHeader(table.Row{"#", "Date", "Tag", "Description"})
	for _, a := range actions {
		t.AppendRow(table.Row{a.Order, a.Date, service.ActionClassification(a), a.Description})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, WidthMax: 70},
	})
	t.Render()

	fmt.Fprintf(out, "Stage: %s\n", stageText(stage))
}

func statusText(s model.SyncStatus) string {
	switch s {
	case model.SyncStatusSuccess:
		return successStyle.Sprint(string(s))
	case model.SyncStatusError:
		return errorStyle.Sprint(string(s))
	default:
		return pendingStyle.Sprint(string(s))
	}
}

func stageText(s model.Stage) string {
	if s.IsTerminal() {
		return terminalStyle.Sprint(string(s))
	}
	return string(s)
}

func formatTime(t time.Time, valid bool) string {
	if !valid {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func share(count, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(count)*100/float64(total))
}
