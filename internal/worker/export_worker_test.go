package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/amqp"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
	sheetsmem "github.com/alfonsoemoreno/predicacion-tracker/internal/sheets/memory"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/store/memory"
)

func seedReport(t *testing.T, mem *memory.Store, userID string, index int, locked bool) core.MonthlyReport {
	t.Helper()
	period := core.MonthRange(2024, index)
	report, err := mem.InsertReport(context.Background(), core.MonthlyReport{
		UserID:      userID,
		PeriodYear:  2024,
		MonthIndex:  index,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		Locked:      locked,
	})
	if err != nil {
		t.Fatalf("insert report: %v", err)
	}
	return report
}

func TestExportWorker_HandleReportClosed(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	exporter := sheetsmem.New()
	w := NewExportWorker(mem, mem, exporter, 10)

	report := seedReport(t, mem, "user-1", 0, true)

	msg := &amqp.ReportClosedMessage{
		ReportID:   report.ID,
		UserID:     "user-1",
		PeriodYear: 2024,
		MonthIndex: 0,
		Timestamp:  time.Now(),
	}
	if err := w.HandleReportClosed(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	exported := exporter.Exported()
	if len(exported) != 1 || exported[0].ID != report.ID {
		t.Fatalf("exported = %+v", exported)
	}

	pending, err := mem.ListUnsyncedReports(ctx, 10)
	if err != nil {
		t.Fatalf("list unsynced: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("report not marked synced: %+v", pending)
	}
}

func TestExportWorker_SkipsReopenedReport(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	exporter := sheetsmem.New()
	w := NewExportWorker(mem, mem, exporter, 10)

	report := seedReport(t, mem, "user-1", 0, false)

	msg := &amqp.ReportClosedMessage{ReportID: report.ID, UserID: "user-1", PeriodYear: 2024}
	if err := w.HandleReportClosed(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := exporter.Exported(); len(got) != 0 {
		t.Errorf("reopened report exported: %+v", got)
	}
}

func TestExportWorker_ProcessPendingReports(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	exporter := sheetsmem.New()
	w := NewExportWorker(mem, mem, exporter, 10)

	seedReport(t, mem, "user-1", 0, true)
	seedReport(t, mem, "user-1", 1, true)
	seedReport(t, mem, "user-1", 2, false)

	if err := w.ProcessPendingReports(ctx); err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if got := exporter.Exported(); len(got) != 2 {
		t.Fatalf("exported %d reports, want 2", len(got))
	}

	// Second pass finds nothing left.
	if err := w.ProcessPendingReports(ctx); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if got := exporter.Exported(); len(got) != 2 {
		t.Errorf("reports exported twice: %d", len(got))
	}
}
