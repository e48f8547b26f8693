package services

import (
	"context"
	"errors"
	"testing"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/store/memory"
)

func newActivityService(t *testing.T) (*ActivityService, *ReportLedger, *memory.Store) {
	t.Helper()
	mem := memory.New()
	ledger := NewReportLedger(mem, NewAggregator(mem), nil)
	return NewActivityService(mem, mem, mem), ledger, mem
}

func TestActivityService_MonthLockGate(t *testing.T) {
	ctx := context.Background()
	svc, ledger, mem := newActivityService(t)

	open := seedActivity(t, mem, core.Activity{Date: core.NewDate(2024, 9, 5), Kind: core.Preaching, Minutes: intPtr(60)})

	// Close September.
	if _, err := ledger.GenerateNext(ctx, testUser, 2024, GenerateOptions{}); err != nil {
		t.Fatalf("generate: %v", err)
	}

	t.Run("create in locked month rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, core.Activity{
			UserID: testUser, Date: core.NewDate(2024, 9, 12), Kind: core.Preaching, Minutes: intPtr(30),
		})
		if !errors.Is(err, core.ErrMonthLocked) {
			t.Errorf("create = %v, want ErrMonthLocked", err)
		}
	})

	t.Run("update in locked month rejected", func(t *testing.T) {
		changed := open
		changed.Minutes = intPtr(90)
		if _, err := svc.Update(ctx, changed); !errors.Is(err, core.ErrMonthLocked) {
			t.Errorf("update = %v, want ErrMonthLocked", err)
		}
	})

	t.Run("delete in locked month rejected", func(t *testing.T) {
		if err := svc.Delete(ctx, testUser, open.ID); !errors.Is(err, core.ErrMonthLocked) {
			t.Errorf("delete = %v, want ErrMonthLocked", err)
		}
	})

	t.Run("move into locked month rejected", func(t *testing.T) {
		oct, err := svc.Create(ctx, core.Activity{
			UserID: testUser, Date: core.NewDate(2024, 10, 3), Kind: core.Preaching, Minutes: intPtr(30),
		})
		if err != nil {
			t.Fatalf("create in open month: %v", err)
		}
		oct.Date = core.NewDate(2024, 9, 3)
		if _, err := svc.Update(ctx, oct); !errors.Is(err, core.ErrMonthLocked) {
			t.Errorf("move = %v, want ErrMonthLocked", err)
		}
	})

	t.Run("open month accepts edits after unlock", func(t *testing.T) {
		chain, err := ledger.List(ctx, testUser, 2024)
		if err != nil {
			t.Fatalf("list reports: %v", err)
		}
		if _, err := ledger.Unlock(ctx, testUser, chain[len(chain)-1].ID); err != nil {
			t.Fatalf("unlock: %v", err)
		}
		changed := open
		changed.Minutes = intPtr(90)
		if _, err := svc.Update(ctx, changed); err != nil {
			t.Errorf("update after unlock: %v", err)
		}
	})
}

func TestActivityService_ListMonth(t *testing.T) {
	ctx := context.Background()
	svc, _, mem := newActivityService(t)

	seedActivity(t, mem, core.Activity{Date: core.NewDate(2024, 9, 20), Kind: core.Preaching, Minutes: intPtr(45)})
	seedActivity(t, mem, core.Activity{Date: core.NewDate(2024, 9, 5), Kind: core.Preaching, Minutes: intPtr(90)})
	seedActivity(t, mem, core.Activity{Date: core.NewDate(2024, 10, 1), Kind: core.Preaching, Minutes: intPtr(10)})

	got, err := svc.ListMonth(ctx, testUser, 2024, 0)
	if err != nil {
		t.Fatalf("ListMonth: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].Date.Before(got[1].Date.Time) {
		t.Errorf("activities not ordered by date: %s before %s", got[0].Date.ISO(), got[1].Date.ISO())
	}
}

func TestActivityService_Contacts(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newActivityService(t)

	if _, err := svc.CreateContact(ctx, core.Contact{UserID: testUser}); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("empty name = %v, want ErrEmptyName", err)
	}

	created, err := svc.CreateContact(ctx, core.Contact{UserID: testUser, Name: "Ana", Color: "#E6F7FF"})
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}
	if created.ID == "" {
		t.Error("contact ID not assigned")
	}

	contacts, err := svc.ListContacts(ctx, testUser)
	if err != nil {
		t.Fatalf("list contacts: %v", err)
	}
	if len(contacts) != 1 || contacts[0].Name != "Ana" {
		t.Errorf("contacts = %+v", contacts)
	}
}

func TestActivityService_RequiresUser(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newActivityService(t)

	if _, err := svc.Create(ctx, core.Activity{Date: core.NewDate(2024, 9, 1), Kind: core.Preaching}); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Errorf("Create = %v, want ErrNotAuthenticated", err)
	}
	if err := svc.Delete(ctx, "", 1); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Errorf("Delete = %v, want ErrNotAuthenticated", err)
	}
	if _, err := svc.ListMonth(ctx, "", 2024, 0); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Errorf("ListMonth = %v, want ErrNotAuthenticated", err)
	}
}
