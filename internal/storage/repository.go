package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

// Ensure interface conformance
var (
	_ store.ActivityStore = (*SQLiteRepository)(nil)
	_ store.ContactStore  = (*SQLiteRepository)(nil)
	_ store.ReportStore   = (*SQLiteRepository)(nil)
	_ store.ExportQueue   = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// wrapSQLError translates SQLite failures into the core taxonomy. The
// driver reports constraint breaks only through the message text, so the
// known substrings are matched here rather than in every caller.
func wrapSQLError(op string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "constraint") {
		return fmt.Errorf("%s: %v: %w", op, err, core.ErrConstraintViolation)
	}
	if strings.Contains(msg, "readonly") || strings.Contains(msg, "access") {
		return fmt.Errorf("%s: %v: %w", op, err, core.ErrPermissionDenied)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func newContactID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("contact_%d", time.Now().UnixNano())
	}
	return "contact_" + hex.EncodeToString(bytes)
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseISO(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ----- activities -----

const activityColumns = "id, user_id, activity_date, kind, minutes, start_time, end_time, contact_id, title, created_at"

func (r *SQLiteRepository) CreateActivity(ctx context.Context, a core.Activity) (core.Activity, error) {
	if err := a.Validate(); err != nil {
		return core.Activity{}, err
	}

	var minutes sql.NullInt64
	if a.Minutes != nil {
		minutes = sql.NullInt64{Int64: int64(*a.Minutes), Valid: true}
	}
	createdAt := nowISO()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO activities (user_id, activity_date, kind, minutes, start_time, end_time, contact_id, title, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Date.ISO(), string(a.Kind), minutes, a.StartTime, a.EndTime, a.ContactID, a.Title, createdAt)
	if err != nil {
		return core.Activity{}, wrapSQLError("create activity", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Activity{}, fmt.Errorf("create activity: last insert id: %w", err)
	}

	a.ID = id
	a.CreatedAt = parseISO(createdAt)

	slog.InfoContext(ctx, "Activity saved to SQLite",
		"id", a.ID,
		"kind", a.Kind,
		"date", a.Date.ISO())

	return a, nil
}

func (r *SQLiteRepository) UpdateActivity(ctx context.Context, a core.Activity) (core.Activity, error) {
	if err := a.Validate(); err != nil {
		return core.Activity{}, err
	}

	var minutes sql.NullInt64
	if a.Minutes != nil {
		minutes = sql.NullInt64{Int64: int64(*a.Minutes), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE activities
		SET activity_date = ?, kind = ?, minutes = ?, start_time = ?, end_time = ?, contact_id = ?, title = ?
		WHERE id = ? AND user_id = ?`,
		a.Date.ISO(), string(a.Kind), minutes, a.StartTime, a.EndTime, a.ContactID, a.Title, a.ID, a.UserID)
	if err != nil {
		return core.Activity{}, wrapSQLError("update activity", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.Activity{}, core.ErrActivityNotFound
	}

	return r.GetActivity(ctx, a.UserID, a.ID)
}

func (r *SQLiteRepository) DeleteActivity(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM activities WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return wrapSQLError("delete activity", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.ErrActivityNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetActivity(ctx context.Context, userID string, id int64) (core.Activity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Activity{}, core.ErrActivityNotFound
	}
	if err != nil {
		return core.Activity{}, fmt.Errorf("get activity: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListActivities(ctx context.Context, userID string, p core.Period) ([]core.Activity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		WHERE user_id = ? AND activity_date >= ? AND activity_date < ?
		ORDER BY activity_date, id`,
		userID, p.Start.ISO(), p.End.ISO())
	if err != nil {
		return nil, wrapSQLError("list activities", err)
	}
	defer rows.Close()

	var out []core.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (core.Activity, error) {
	var (
		a         core.Activity
		date      string
		kind      string
		minutes   sql.NullInt64
		createdAt string
	)
	if err := row.Scan(&a.ID, &a.UserID, &date, &kind, &minutes,
		&a.StartTime, &a.EndTime, &a.ContactID, &a.Title, &createdAt); err != nil {
		return core.Activity{}, err
	}
	parsed, err := core.ParseDate(date)
	if err != nil {
		return core.Activity{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	a.Date = parsed
	a.Kind = core.ActivityKind(kind)
	if minutes.Valid {
		m := int(minutes.Int64)
		a.Minutes = &m
	}
	a.CreatedAt = parseISO(createdAt)
	return a, nil
}

// ----- contacts -----

func (r *SQLiteRepository) CreateContact(ctx context.Context, c core.Contact) (core.Contact, error) {
	if err := c.Validate(); err != nil {
		return core.Contact{}, err
	}
	if c.ID == "" {
		c.ID = newContactID()
	}
	createdAt := nowISO()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (id, user_id, name, color, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Color, createdAt)
	if err != nil {
		return core.Contact{}, wrapSQLError("create contact", err)
	}
	c.CreatedAt = parseISO(createdAt)
	return c, nil
}

func (r *SQLiteRepository) ListContacts(ctx context.Context, userID string) ([]core.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, color, created_at
		FROM contacts WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, wrapSQLError("list contacts", err)
	}
	defer rows.Close()

	var out []core.Contact
	for rows.Next() {
		var (
			c         core.Contact
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &createdAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		c.CreatedAt = parseISO(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ----- monthly reports -----

const reportColumns = `id, user_id, period_year, month_index, period_start, period_end,
	total_minutes, carried_in_minutes, carried_out_minutes, whole_hours, leftover_minutes,
	effective_minutes, distinct_studies, sacred_service_minutes, comments, locked, synced, created_at`

func (r *SQLiteRepository) InsertReport(ctx context.Context, report core.MonthlyReport) (core.MonthlyReport, error) {
	createdAt := nowISO()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO monthly_reports (user_id, period_year, month_index, period_start, period_end,
			total_minutes, carried_in_minutes, carried_out_minutes, whole_hours, leftover_minutes,
			effective_minutes, distinct_studies, sacred_service_minutes, comments, locked, synced, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		report.UserID, report.PeriodYear, report.MonthIndex,
		report.PeriodStart.ISO(), report.PeriodEnd.ISO(),
		report.TotalMinutes, report.CarriedInMinutes, report.CarriedOutMinutes,
		report.WholeHours, report.LeftoverMinutes, report.EffectiveMinutes,
		report.DistinctStudies, report.SacredServiceMinutes,
		report.Comments, report.Locked, createdAt)
	if err != nil {
		return core.MonthlyReport{}, wrapSQLError("insert report", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("insert report: last insert id: %w", err)
	}

	report.ID = id
	report.Synced = false
	report.CreatedAt = parseISO(createdAt)

	slog.InfoContext(ctx, "Monthly report saved to SQLite",
		"id", report.ID,
		"period_year", report.PeriodYear,
		"month_index", report.MonthIndex)

	return report, nil
}

func (r *SQLiteRepository) ListReports(ctx context.Context, userID string, year int) ([]core.MonthlyReport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM monthly_reports
		WHERE user_id = ? AND period_year = ?
		ORDER BY month_index`, userID, year)
	if err != nil {
		return nil, wrapSQLError("list reports", err)
	}
	defer rows.Close()

	var out []core.MonthlyReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetReport(ctx context.Context, userID string, id int64) (core.MonthlyReport, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM monthly_reports WHERE id = ? AND user_id = ?`, id, userID)
	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyReport{}, core.ErrReportNotFound
	}
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

// UpdateReportRows rewrites the numeric fields of the given rows in a
// single transaction, so a recalculation either lands whole or not at all.
// Every touched row goes back to synced = 0 for the export worker.
func (r *SQLiteRepository) UpdateReportRows(ctx context.Context, userID string, rows []core.MonthlyReport) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		res, err := tx.ExecContext(ctx, `
			UPDATE monthly_reports
			SET total_minutes = ?, carried_in_minutes = ?, carried_out_minutes = ?,
				whole_hours = ?, leftover_minutes = ?, effective_minutes = ?,
				distinct_studies = ?, sacred_service_minutes = ?, locked = ?, synced = 0
			WHERE id = ? AND user_id = ?`,
			row.TotalMinutes, row.CarriedInMinutes, row.CarriedOutMinutes,
			row.WholeHours, row.LeftoverMinutes, row.EffectiveMinutes,
			row.DistinctStudies, row.SacredServiceMinutes, row.Locked,
			row.ID, userID)
		if err != nil {
			return wrapSQLError("update report", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return core.ErrReportNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report updates: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateComments(ctx context.Context, userID string, id int64, comments string) (core.MonthlyReport, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE monthly_reports SET comments = ? WHERE id = ? AND user_id = ?`,
		comments, id, userID)
	if err != nil {
		return core.MonthlyReport{}, wrapSQLError("update comments", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.MonthlyReport{}, core.ErrReportNotFound
	}
	return r.GetReport(ctx, userID, id)
}

// UnlockLastReport is the privileged unlock path: the WHERE clause only
// matches when the target row holds the highest month index of its year,
// so a stale caller cannot reopen the middle of the chain.
func (r *SQLiteRepository) UnlockLastReport(ctx context.Context, userID string, id int64) (core.MonthlyReport, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE monthly_reports
		SET locked = 0
		WHERE id = ? AND user_id = ?
		AND month_index = (
			SELECT MAX(month_index) FROM monthly_reports latest
			WHERE latest.user_id = monthly_reports.user_id
			AND latest.period_year = monthly_reports.period_year
		)`, id, userID)
	if err != nil {
		return core.MonthlyReport{}, wrapSQLError("unlock report", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		if _, err := r.GetReport(ctx, userID, id); err != nil {
			return core.MonthlyReport{}, err
		}
		return core.MonthlyReport{}, core.ErrNotLastReport
	}
	return r.GetReport(ctx, userID, id)
}

func (r *SQLiteRepository) ListUnsyncedReports(ctx context.Context, limit int) ([]core.MonthlyReport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM monthly_reports
		WHERE locked = 1 AND synced = 0
		ORDER BY id
		LIMIT ?`, limit)
	if err != nil {
		return nil, wrapSQLError("list unsynced reports", err)
	}
	defer rows.Close()

	var out []core.MonthlyReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkReportSynced(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE monthly_reports SET synced = 1 WHERE id = ?`, id)
	if err != nil {
		return wrapSQLError("mark report synced", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.ErrReportNotFound
	}

	slog.InfoContext(ctx, "Report marked as synced", "id", id)
	return nil
}

func scanReport(row rowScanner) (core.MonthlyReport, error) {
	var (
		report      core.MonthlyReport
		periodStart string
		periodEnd   string
		createdAt   string
	)
	if err := row.Scan(&report.ID, &report.UserID, &report.PeriodYear, &report.MonthIndex,
		&periodStart, &periodEnd,
		&report.TotalMinutes, &report.CarriedInMinutes, &report.CarriedOutMinutes,
		&report.WholeHours, &report.LeftoverMinutes, &report.EffectiveMinutes,
		&report.DistinctStudies, &report.SacredServiceMinutes,
		&report.Comments, &report.Locked, &report.Synced, &createdAt); err != nil {
		return core.MonthlyReport{}, err
	}

	start, err := core.ParseDate(periodStart)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("stored period start %q: %w", periodStart, err)
	}
	end, err := core.ParseDate(periodEnd)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("stored period end %q: %w", periodEnd, err)
	}
	report.PeriodStart = start
	report.PeriodEnd = end
	report.CreatedAt = parseISO(createdAt)
	return report, nil
}
