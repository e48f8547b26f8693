package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/store/memory"
)

func newLedger(t *testing.T) (*ReportLedger, *memory.Store) {
	t.Helper()
	mem := memory.New()
	return NewReportLedger(mem, NewAggregator(mem), nil), mem
}

// seedTwoMonthChain seeds September with 135 preaching minutes and
// October with 50.
func seedTwoMonthChain(t *testing.T, mem *memory.Store) {
	t.Helper()
	seedActivity(t, mem, core.Activity{Date: core.NewDate(2024, 9, 5), Kind: core.Preaching, Minutes: intPtr(90)})
	seedActivity(t, mem, core.Activity{Date: core.NewDate(2024, 9, 20), Kind: core.Preaching, Minutes: intPtr(45)})
	seedActivity(t, mem, core.Activity{Date: core.NewDate(2024, 10, 8), Kind: core.Preaching, Minutes: intPtr(50)})
}

func TestReportLedger_GenerateNext_Sequential(t *testing.T) {
	ctx := context.Background()
	ledger, mem := newLedger(t)
	seedTwoMonthChain(t, mem)

	first, err := ledger.GenerateNext(ctx, testUser, 2024, GenerateOptions{})
	if err != nil {
		t.Fatalf("generate month 0: %v", err)
	}
	if first.MonthIndex != 0 || first.TotalMinutes != 135 || first.CarriedInMinutes != 0 {
		t.Errorf("month 0 = %+v", first)
	}
	if first.EffectiveMinutes != 135 || first.WholeHours != 2 || first.LeftoverMinutes != 15 {
		t.Errorf("month 0 closure wrong: effective=%d hours=%d leftover=%d",
			first.EffectiveMinutes, first.WholeHours, first.LeftoverMinutes)
	}
	if !first.Locked {
		t.Error("generated report must be locked")
	}
	if first.PeriodStart.ISO() != "2024-09-01" || first.PeriodEnd.ISO() != "2024-10-01" {
		t.Errorf("month 0 period = [%s, %s)", first.PeriodStart.ISO(), first.PeriodEnd.ISO())
	}

	second, err := ledger.GenerateNext(ctx, testUser, 2024, GenerateOptions{})
	if err != nil {
		t.Fatalf("generate month 1: %v", err)
	}
	if second.MonthIndex != 1 {
		t.Errorf("month index = %d, want 1", second.MonthIndex)
	}
	if second.CarriedInMinutes != 15 || second.EffectiveMinutes != 65 || second.WholeHours != 1 || second.LeftoverMinutes != 5 {
		t.Errorf("month 1 closure wrong: %+v", second)
	}
}

func TestReportLedger_GenerateNext_AlreadyComplete(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t)

	for i := 0; i < core.MonthsPerYear; i++ {
		if _, err := ledger.GenerateNext(ctx, testUser, 2024, GenerateOptions{}); err != nil {
			t.Fatalf("generate month %d: %v", i, err)
		}
	}

	_, err := ledger.GenerateNext(ctx, testUser, 2024, GenerateOptions{})
	if !errors.Is(err, core.ErrAlreadyComplete) {
		t.Errorf("13th generation = %v, want ErrAlreadyComplete", err)
	}

	chain, err := ledger.List(ctx, testUser, 2024)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, r := range chain {
		if r.MonthIndex != i {
			t.Errorf("chain[%d].MonthIndex = %d, want %d", i, r.MonthIndex, i)
		}
	}
	assertCarryInvariant(t, chain)
}

func TestReportLedger_GenerateNext_AutoSummary(t *testing.T) {
	ctx := context.Background()
	ledger, mem := newLedger(t)

	tests := []struct {
		name string
		opts GenerateOptions
		want string
	}{
		{
			name: "auto summary only",
			opts: GenerateOptions{IncludeAutoSummary: true},
			want: "0.50h - Construcción\n1.50h - Servicio sagrado",
		},
		{
			name: "manual comment first",
			opts: GenerateOptions{Comment: "Mes especial", IncludeAutoSummary: true},
			want: "Mes especial\n0.50h - Construcción\n1.50h - Servicio sagrado",
		},
		{
			name: "auto summary declined",
			opts: GenerateOptions{Comment: "Solo manual"},
			want: "Solo manual",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := testUser + "-" + strings.ReplaceAll(tt.name, " ", "-")
			// Each subtest gets its own chain over shared activities.
			seedActivity(t, mem, core.Activity{UserID: user, Date: core.NewDate(2024, 9, 10), Kind: core.SacredService, Minutes: intPtr(30), Title: "Construcción"})
			seedActivity(t, mem, core.Activity{UserID: user, Date: core.NewDate(2024, 9, 18), Kind: core.SacredService, Minutes: intPtr(90)})

			report, err := ledger.GenerateNext(ctx, user, 2024, tt.opts)
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if report.Comments != tt.want {
				t.Errorf("comments = %q, want %q", report.Comments, tt.want)
			}
			if report.SacredServiceMinutes != 120 {
				t.Errorf("sacred minutes = %d, want 120", report.SacredServiceMinutes)
			}
		})
	}
}

func TestReportLedger_Unlock(t *testing.T) {
	ctx := context.Background()
	ledger, mem := newLedger(t)
	seedTwoMonthChain(t, mem)

	first, err := ledger.GenerateNext(ctx, testUser, 2024, GenerateOptions{})
	if err != nil {
		t.Fatalf("generate month 0: %v", err)
	}
	second, err := ledger.GenerateNext(ctx, testUser, 2024, GenerateOptions{})
	if err != nil {
		t.Fatalf("generate month 1: %v", err)
	}

	if _, err := ledger.Unlock(ctx, testUser, first.ID); !errors.Is(err, core.ErrNotLastReport) {
		t.Errorf("unlock of non-last report = %v, want ErrNotLastReport", err)
	}

	unlocked, err := ledger.Unlock(ctx, testUser, second.ID)
	if err != nil {
		t.Fatalf("unlock last: %v", err)
	}
	if unlocked.Locked {
		t.Error("report still locked after unlock")
	}

	// Unlocking an already-open last report is a no-op.
	again, err := ledger.Unlock(ctx, testUser, second.ID)
	if err != nil {
		t.Fatalf("second unlock: %v", err)
	}
	if again.Locked {
		t.Error("no-op unlock relocked the report")
	}
}

func TestReportLedger_ReopenAndRecalc(t *testing.T) {
	ctx := context.Background()
	ledger, mem := newLedger(t)
	seedTwoMonthChain(t, mem)

	if _, err := ledger.GenerateNext(ctx, testUser, 2024, GenerateOptions{Comment: "septiembre"}); err != nil {
		t.Fatalf("generate month 0: %v", err)
	}
	if _, err := ledger.GenerateNext(ctx, testUser, 2024, GenerateOptions{}); err != nil {
		t.Fatalf("generate month 1: %v", err)
	}

	// Reopen month 0 and add 65 preaching minutes.
	seedActivity(t, mem, core.Activity{Date: core.NewDate(2024, 9, 25), Kind: core.Preaching, Minutes: intPtr(65)})

	chain, err := ledger.RecalcAndLockFrom(ctx, testUser, 2024, 0)
	if err != nil {
		t.Fatalf("recalc: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2", len(chain))
	}

	m0, m1 := chain[0], chain[1]
	if m0.TotalMinutes != 200 || m0.EffectiveMinutes != 200 || m0.WholeHours != 3 || m0.LeftoverMinutes != 20 {
		t.Errorf("month 0 after recalc = %+v", m0)
	}
	// Month 1's own raw total is unchanged but its carry-in moved.
	if m1.TotalMinutes != 50 || m1.CarriedInMinutes != 20 || m1.EffectiveMinutes != 70 || m1.WholeHours != 1 || m1.LeftoverMinutes != 10 {
		t.Errorf("month 1 after recalc = %+v", m1)
	}
	if !m0.Locked || !m1.Locked {
		t.Error("recalculated reports must end up locked")
	}
	if m0.Comments != "septiembre" {
		t.Errorf("recalc must not touch comments, got %q", m0.Comments)
	}
	assertCarryInvariant(t, chain)
}

func TestReportLedger_RecalcPreservesPrefix(t *testing.T) {
	ctx := context.Background()
	ledger, mem := newLedger(t)
	seedTwoMonthChain(t, mem)

	if _, err := ledger.GenerateNext(ctx, testUser, 2024, GenerateOptions{}); err != nil {
		t.Fatalf("generate month 0: %v", err)
	}
	if _, err := ledger.GenerateNext(ctx, testUser, 2024, GenerateOptions{}); err != nil {
		t.Fatalf("generate month 1: %v", err)
	}

	// Activity added to month 0 while only month 1 is recalculated: the
	// stored month 0 row must remain untouched and still seed the carry.
	seedActivity(t, mem, core.Activity{Date: core.NewDate(2024, 9, 26), Kind: core.Preaching, Minutes: intPtr(65)})

	chain, err := ledger.RecalcAndLockFrom(ctx, testUser, 2024, 1)
	if err != nil {
		t.Fatalf("recalc: %v", err)
	}
	if chain[0].TotalMinutes != 135 {
		t.Errorf("prefix month was re-aggregated: %+v", chain[0])
	}
	if chain[1].CarriedInMinutes != chain[0].LeftoverMinutes {
		t.Errorf("carry broken: %d != %d", chain[1].CarriedInMinutes, chain[0].LeftoverMinutes)
	}
}

func TestReportLedger_RecalcIdempotent(t *testing.T) {
	ctx := context.Background()
	ledger, mem := newLedger(t)
	seedTwoMonthChain(t, mem)

	if _, err := ledger.GenerateNext(ctx, testUser, 2024, GenerateOptions{}); err != nil {
		t.Fatalf("generate month 0: %v", err)
	}
	if _, err := ledger.GenerateNext(ctx, testUser, 2024, GenerateOptions{}); err != nil {
		t.Fatalf("generate month 1: %v", err)
	}

	first, err := ledger.RecalcAndLockFrom(ctx, testUser, 2024, 0)
	if err != nil {
		t.Fatalf("first recalc: %v", err)
	}
	second, err := ledger.RecalcAndLockFrom(ctx, testUser, 2024, 0)
	if err != nil {
		t.Fatalf("second recalc: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("recalc not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestReportLedger_RecalcEmptyChain(t *testing.T) {
	ledger, _ := newLedger(t)
	chain, err := ledger.RecalcAndLockFrom(context.Background(), testUser, 2024, 0)
	if err != nil {
		t.Fatalf("recalc on empty chain: %v", err)
	}
	if len(chain) != 0 {
		t.Errorf("chain = %+v, want empty", chain)
	}
}

func TestReportLedger_UpdateComments(t *testing.T) {
	ctx := context.Background()
	ledger, mem := newLedger(t)
	seedTwoMonthChain(t, mem)

	report, err := ledger.GenerateNext(ctx, testUser, 2024, GenerateOptions{Comment: "antes"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	updated, err := ledger.UpdateComments(ctx, testUser, report.ID, "después")
	if err != nil {
		t.Fatalf("update comments: %v", err)
	}
	if updated.Comments != "después" {
		t.Errorf("comments = %q, want %q", updated.Comments, "después")
	}
	if !updated.Locked || updated.TotalMinutes != report.TotalMinutes {
		t.Errorf("comment edit changed more than comments: %+v", updated)
	}
}

func TestReportLedger_RequiresUser(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t)

	if _, err := ledger.GenerateNext(ctx, "", 2024, GenerateOptions{}); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Errorf("GenerateNext = %v, want ErrNotAuthenticated", err)
	}
	if _, err := ledger.Unlock(ctx, "", 1); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Errorf("Unlock = %v, want ErrNotAuthenticated", err)
	}
	if _, err := ledger.RecalcAndLockFrom(ctx, "", 2024, 0); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Errorf("RecalcAndLockFrom = %v, want ErrNotAuthenticated", err)
	}
	if _, err := ledger.UpdateComments(ctx, "", 1, "x"); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Errorf("UpdateComments = %v, want ErrNotAuthenticated", err)
	}
}

func assertCarryInvariant(t *testing.T, chain []core.MonthlyReport) {
	t.Helper()
	for i, r := range chain {
		if r.LeftoverMinutes < 0 || r.LeftoverMinutes > 59 {
			t.Errorf("chain[%d] leftover out of range: %d", i, r.LeftoverMinutes)
		}
		if r.WholeHours*60+r.LeftoverMinutes != r.EffectiveMinutes {
			t.Errorf("chain[%d] does not reassemble: %d*60+%d != %d",
				i, r.WholeHours, r.LeftoverMinutes, r.EffectiveMinutes)
		}
		if i == 0 {
			if r.CarriedInMinutes != 0 {
				t.Errorf("chain[0] carried in %d, want 0", r.CarriedInMinutes)
			}
			continue
		}
		if r.CarriedInMinutes != chain[i-1].LeftoverMinutes {
			t.Errorf("chain[%d] carried in %d, previous leftover %d",
				i, r.CarriedInMinutes, chain[i-1].LeftoverMinutes)
		}
	}
}
