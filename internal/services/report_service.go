package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/amqp"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/store"
)

// ReportLedger owns the sequential chain of monthly closures for a
// theocratic year: it generates the next report in strict month order,
// unlocks the most recent one, and recalculates a contiguous suffix of the
// chain after edits so the carry-forward invariant holds end to end.
type ReportLedger struct {
	reports    store.ReportStore
	aggregator *Aggregator
	amqpClient *amqp.Client
}

// GenerateOptions controls report generation.
type GenerateOptions struct {
	Comment            string
	IncludeAutoSummary bool
}

func NewReportLedger(reports store.ReportStore, aggregator *Aggregator, amqpClient *amqp.Client) *ReportLedger {
	return &ReportLedger{
		reports:    reports,
		aggregator: aggregator,
		amqpClient: amqpClient,
	}
}

// List returns the user's chain for a year, ordered by month index.
func (l *ReportLedger) List(ctx context.Context, userID string, year int) ([]core.MonthlyReport, error) {
	if userID == "" {
		return nil, core.ErrNotAuthenticated
	}
	return l.reports.ListReports(ctx, userID, year)
}

// Summary folds the chain into the year totals used by the UI header and
// the PDF exporter.
func (l *ReportLedger) Summary(ctx context.Context, userID string, year int) (core.YearSummary, error) {
	reports, err := l.List(ctx, userID, year)
	if err != nil {
		return core.YearSummary{}, err
	}
	return core.Summarize(year, reports), nil
}

// GenerateNext closes the next open month of the year. The target index is
// always len(existing reports); there is no way to close months out of
// order. The new row is inserted locked.
func (l *ReportLedger) GenerateNext(ctx context.Context, userID string, year int, opts GenerateOptions) (core.MonthlyReport, error) {
	if userID == "" {
		return core.MonthlyReport{}, core.ErrNotAuthenticated
	}

	existing, err := l.reports.ListReports(ctx, userID, year)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("list reports: %w", err)
	}
	nextIndex := len(existing)
	if nextIndex >= core.MonthsPerYear {
		return core.MonthlyReport{}, core.ErrAlreadyComplete
	}

	totals, err := l.aggregator.AggregateMonth(ctx, userID, year, nextIndex)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("aggregate month: %w", err)
	}

	carriedIn := 0
	if nextIndex > 0 {
		carriedIn = existing[nextIndex-1].LeftoverMinutes
	}
	closure := core.Close(totals.TotalMinutes, carriedIn)

	comments := opts.Comment
	if opts.IncludeAutoSummary && totals.SacredServiceMinutes > 0 {
		entries, err := l.aggregator.sacredServiceEntries(ctx, userID, year, nextIndex)
		if err != nil {
			return core.MonthlyReport{}, fmt.Errorf("sacred service entries: %w", err)
		}
		comments = joinComments(opts.Comment, sacredSummaryLines(entries))
	}

	period := core.MonthRange(year, nextIndex)
	report := core.MonthlyReport{
		UserID:      userID,
		PeriodYear:  year,
		MonthIndex:  nextIndex,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		Comments:    comments,
		Locked:      true,
	}
	report.Apply(totals, closure)

	saved, err := l.reports.InsertReport(ctx, report)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("insert report: %w", err)
	}

	slog.InfoContext(ctx, "Monthly report generated",
		"period_year", saved.PeriodYear,
		"month_index", saved.MonthIndex,
		"whole_hours", saved.WholeHours,
		"leftover_minutes", saved.LeftoverMinutes)

	// The row is committed; a publish failure only delays the export.
	l.publishClosed(ctx, saved)

	return saved, nil
}

// Unlock reopens a report for activity edits. Only the highest month index
// of its year qualifies; the store's guarded update enforces the same
// precondition a second time.
func (l *ReportLedger) Unlock(ctx context.Context, userID string, reportID int64) (core.MonthlyReport, error) {
	if userID == "" {
		return core.MonthlyReport{}, core.ErrNotAuthenticated
	}

	target, err := l.reports.GetReport(ctx, userID, reportID)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("get report: %w", err)
	}
	chain, err := l.reports.ListReports(ctx, userID, target.PeriodYear)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("list reports: %w", err)
	}
	if len(chain) == 0 || chain[len(chain)-1].ID != target.ID {
		return core.MonthlyReport{}, core.ErrNotLastReport
	}
	if !target.Locked {
		return target, nil
	}

	unlocked, err := l.reports.UnlockLastReport(ctx, userID, reportID)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("unlock report: %w", err)
	}

	slog.InfoContext(ctx, "Monthly report unlocked",
		"period_year", unlocked.PeriodYear,
		"month_index", unlocked.MonthIndex)

	return unlocked, nil
}

// RecalcAndLockFrom re-closes the chain suffix starting at fromIndex.
//
// Leftover minutes flow linearly month to month, so editing month k's
// activities invalidates the carry-in of every later month even though
// their own raw totals are untouched. The walk therefore always runs
// forward from the reopened index to the end of the chain. Months before
// fromIndex are not re-aggregated; their stored leftover seeds the carry.
// Comments are never regenerated here.
func (l *ReportLedger) RecalcAndLockFrom(ctx context.Context, userID string, year, fromIndex int) ([]core.MonthlyReport, error) {
	if userID == "" {
		return nil, core.ErrNotAuthenticated
	}
	if fromIndex < 0 {
		fromIndex = 0
	}

	chain, err := l.reports.ListReports(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	if len(chain) == 0 {
		return []core.MonthlyReport{}, nil
	}

	prevLeftover := 0
	updated := make([]core.MonthlyReport, 0, len(chain))
	for i := range chain {
		report := chain[i]
		if report.MonthIndex < fromIndex {
			prevLeftover = report.LeftoverMinutes
			continue
		}

		totals, err := l.aggregator.AggregateMonth(ctx, userID, year, report.MonthIndex)
		if err != nil {
			return nil, fmt.Errorf("aggregate month %d: %w", report.MonthIndex, err)
		}
		carriedIn := 0
		if report.MonthIndex > 0 {
			carriedIn = prevLeftover
		}
		closure := core.Close(totals.TotalMinutes, carriedIn)
		report.Apply(totals, closure)
		report.Locked = true
		updated = append(updated, report)
		prevLeftover = closure.LeftoverMinutes
	}

	if len(updated) > 0 {
		if err := l.reports.UpdateReportRows(ctx, userID, updated); err != nil {
			return nil, fmt.Errorf("update reports from index %d: %w", fromIndex, err)
		}
		slog.InfoContext(ctx, "Report chain recalculated",
			"period_year", year,
			"from_index", fromIndex,
			"rows", len(updated))
		for _, r := range updated {
			l.publishClosed(ctx, r)
		}
	}

	return l.reports.ListReports(ctx, userID, year)
}

// UpdateComments edits the one field that stays mutable after lock.
func (l *ReportLedger) UpdateComments(ctx context.Context, userID string, reportID int64, comments string) (core.MonthlyReport, error) {
	if userID == "" {
		return core.MonthlyReport{}, core.ErrNotAuthenticated
	}
	updated, err := l.reports.UpdateComments(ctx, userID, reportID, comments)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("update comments: %w", err)
	}
	return updated, nil
}

func (l *ReportLedger) publishClosed(ctx context.Context, r core.MonthlyReport) {
	if l.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping report closed message",
			"report_id", r.ID)
		return
	}
	if err := l.amqpClient.PublishReportClosed(ctx, r.ID, r.UserID, r.PeriodYear, r.MonthIndex); err != nil {
		slog.ErrorContext(ctx, "Failed to publish report closed message",
			"report_id", r.ID, "error", err)
		// Don't fail the request - the export worker's rescan picks it up.
	}
}
