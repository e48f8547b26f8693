package store

import (
	"context"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
)

// Ports for the persistence adapters. Every call is scoped to an explicit
// user ID; there is no ambient session state below this boundary.
type (
	ActivityStore interface {
		CreateActivity(ctx context.Context, a core.Activity) (core.Activity, error)
		UpdateActivity(ctx context.Context, a core.Activity) (core.Activity, error)
		DeleteActivity(ctx context.Context, userID string, id int64) error
		GetActivity(ctx context.Context, userID string, id int64) (core.Activity, error)
		// ListActivities returns the user's activities with a date inside
		// the half-open window, ordered by date.
		ListActivities(ctx context.Context, userID string, p core.Period) ([]core.Activity, error)
	}

	ContactStore interface {
		CreateContact(ctx context.Context, c core.Contact) (core.Contact, error)
		ListContacts(ctx context.Context, userID string) ([]core.Contact, error)
	}

	ReportStore interface {
		// InsertReport appends a new closure row. The store enforces
		// uniqueness on (user, period_year, month_index) and its numeric
		// checks; violations surface as core.ErrConstraintViolation.
		InsertReport(ctx context.Context, r core.MonthlyReport) (core.MonthlyReport, error)

		// ListReports returns the user's chain for a year ordered by
		// month index.
		ListReports(ctx context.Context, userID string, year int) ([]core.MonthlyReport, error)

		GetReport(ctx context.Context, userID string, id int64) (core.MonthlyReport, error)

		// UpdateReportRows rewrites the numeric fields and locked flag of
		// the given rows. Adapters with transaction support apply the
		// whole batch atomically.
		UpdateReportRows(ctx context.Context, userID string, rows []core.MonthlyReport) error

		// UpdateComments edits the one field that stays mutable after
		// lock.
		UpdateComments(ctx context.Context, userID string, id int64, comments string) (core.MonthlyReport, error)

		// UnlockLastReport flips locked off, refusing with
		// core.ErrNotLastReport when the target is not the highest month
		// index of its year.
		UnlockLastReport(ctx context.Context, userID string, id int64) (core.MonthlyReport, error)
	}

	// ExportQueue is what the export worker needs from the report store.
	ExportQueue interface {
		// ListUnsyncedReports returns locked rows not yet exported,
		// oldest first.
		ListUnsyncedReports(ctx context.Context, limit int) ([]core.MonthlyReport, error)
		MarkReportSynced(ctx context.Context, id int64) error
	}
)
