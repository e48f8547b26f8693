package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/amqp"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/sheets"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/store"
)

// ExportWorker pushes closed monthly reports from SQLite to Google Sheets.
type ExportWorker struct {
	reports   store.ReportStore
	queue     store.ExportQueue
	exporter  sheets.ReportExporter
	batchSize int
}

func NewExportWorker(reports store.ReportStore, queue store.ExportQueue, exporter sheets.ReportExporter, batchSize int) *ExportWorker {
	return &ExportWorker{
		reports:   reports,
		queue:     queue,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleReportClosed processes a single report-closed message from AMQP.
func (w *ExportWorker) HandleReportClosed(ctx context.Context, msg *amqp.ReportClosedMessage) error {
	slog.InfoContext(ctx, "Processing report-closed message",
		"report_id", msg.ReportID,
		"period_year", msg.PeriodYear,
		"month_index", msg.MonthIndex)

	report, err := w.reports.GetReport(ctx, msg.UserID, msg.ReportID)
	if err != nil {
		return fmt.Errorf("get report from storage: %w", err)
	}
	if !report.Locked {
		// Reopened between publish and consume. The next closure will
		// publish again.
		slog.InfoContext(ctx, "Report no longer locked, skipping export", "report_id", report.ID)
		return nil
	}

	return w.exportReport(ctx, report)
}

// ProcessPendingReports exports any locked reports that haven't been synced
// yet. This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPendingReports(ctx context.Context) error {
	pending, err := w.queue.ListUnsyncedReports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending reports: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending reports", "count", len(pending))

	for _, report := range pending {
		if err := w.exportReport(ctx, report); err != nil {
			slog.ErrorContext(ctx, "Failed to export report", "report_id", report.ID, "error", err)
			continue
		}
	}
	return nil
}

// StartupSyncCheck drains the unsynced backlog at worker startup, useful to
// recover from missed AMQP messages or worker downtime.
func (w *ExportWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.queue.ListUnsyncedReports(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending reports for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending reports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending reports on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, report := range pending {
		if err := w.exportReport(ctx, report); err != nil {
			slog.ErrorContext(ctx, "Failed to export report during startup",
				"report_id", report.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *ExportWorker) exportReport(ctx context.Context, report core.MonthlyReport) error {
	ref, err := w.exporter.Export(ctx, report)
	if err != nil {
		return fmt.Errorf("export to sheets: %w", err)
	}

	if err := w.queue.MarkReportSynced(ctx, report.ID); err != nil {
		// The export itself worked, only the bookkeeping failed. The rescan
		// path will retry and append a duplicate row, which the sheet owner
		// can reconcile.
		slog.ErrorContext(ctx, "Failed to mark report as synced", "report_id", report.ID, "error", err)
	}

	slog.InfoContext(ctx, "Report exported",
		"report_id", report.ID,
		"sheets_ref", ref,
		"period_year", report.PeriodYear,
		"month_index", report.MonthIndex)

	return nil
}
