// Package memory provides an in-memory store adapter used by tests and as
// the default backend when no SQLite path is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/store"
)

type Store struct {
	mu         sync.Mutex
	nextID     int64
	activities map[int64]core.Activity
	contacts   []core.Contact
	reports    map[int64]core.MonthlyReport
}

// Ensure interface conformance
var (
	_ store.ActivityStore = (*Store)(nil)
	_ store.ContactStore  = (*Store)(nil)
	_ store.ReportStore   = (*Store)(nil)
	_ store.ExportQueue   = (*Store)(nil)
)

func New() *Store {
	return &Store{
		nextID:     1,
		activities: make(map[int64]core.Activity),
		reports:    make(map[int64]core.MonthlyReport),
	}
}

func (s *Store) id() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Store) CreateActivity(_ context.Context, a core.Activity) (core.Activity, error) {
	if err := a.Validate(); err != nil {
		return core.Activity{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.activities[a.ID] = a
	return a, nil
}

func (s *Store) UpdateActivity(_ context.Context, a core.Activity) (core.Activity, error) {
	if err := a.Validate(); err != nil {
		return core.Activity{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.activities[a.ID]
	if !ok || existing.UserID != a.UserID {
		return core.Activity{}, core.ErrActivityNotFound
	}
	a.CreatedAt = existing.CreatedAt
	s.activities[a.ID] = a
	return a, nil
}

func (s *Store) DeleteActivity(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.activities[id]
	if !ok || existing.UserID != userID {
		return core.ErrActivityNotFound
	}
	delete(s.activities, id)
	return nil
}

func (s *Store) GetActivity(_ context.Context, userID string, id int64) (core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.activities[id]
	if !ok || existing.UserID != userID {
		return core.Activity{}, core.ErrActivityNotFound
	}
	return existing, nil
}

func (s *Store) ListActivities(_ context.Context, userID string, p core.Period) ([]core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Activity
	for _, a := range s.activities {
		if a.UserID == userID && p.Contains(a.Date) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateContact(_ context.Context, c core.Contact) (core.Contact, error) {
	if err := c.Validate(); err != nil {
		return core.Contact{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = fmt.Sprintf("mem-contact-%d", s.id())
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.contacts = append(s.contacts, c)
	return c, nil
}

func (s *Store) ListContacts(_ context.Context, userID string) ([]core.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Contact
	for _, c := range s.contacts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) InsertReport(_ context.Context, r core.MonthlyReport) (core.MonthlyReport, error) {
	if err := checkReportRow(r); err != nil {
		return core.MonthlyReport{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reports {
		if existing.UserID == r.UserID && existing.PeriodYear == r.PeriodYear && existing.MonthIndex == r.MonthIndex {
			return core.MonthlyReport{}, fmt.Errorf("report %d/%d already exists: %w",
				r.PeriodYear, r.MonthIndex, core.ErrConstraintViolation)
		}
	}
	r.ID = s.id()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.reports[r.ID] = r
	return r, nil
}

func (s *Store) ListReports(_ context.Context, userID string, year int) ([]core.MonthlyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(userID, year), nil
}

func (s *Store) listLocked(userID string, year int) []core.MonthlyReport {
	var out []core.MonthlyReport
	for _, r := range s.reports {
		if r.UserID == userID && r.PeriodYear == year {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthIndex < out[j].MonthIndex })
	return out
}

func (s *Store) GetReport(_ context.Context, userID string, id int64) (core.MonthlyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok || r.UserID != userID {
		return core.MonthlyReport{}, core.ErrReportNotFound
	}
	return r, nil
}

// UpdateReportRows applies the rows in order. The memory adapter has no
// transaction to wrap them in; retrying the recalculation is always safe.
func (s *Store) UpdateReportRows(_ context.Context, userID string, rows []core.MonthlyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		if err := checkReportRow(row); err != nil {
			return err
		}
		existing, ok := s.reports[row.ID]
		if !ok || existing.UserID != userID {
			return core.ErrReportNotFound
		}
		existing.Apply(core.MonthTotals{
			TotalMinutes:         row.TotalMinutes,
			DistinctStudies:      row.DistinctStudies,
			SacredServiceMinutes: row.SacredServiceMinutes,
		}, core.Closure{
			CarriedIn:        row.CarriedInMinutes,
			EffectiveMinutes: row.EffectiveMinutes,
			WholeHours:       row.WholeHours,
			LeftoverMinutes:  row.LeftoverMinutes,
		})
		existing.Locked = row.Locked
		existing.Synced = false
		s.reports[row.ID] = existing
	}
	return nil
}

func (s *Store) UpdateComments(_ context.Context, userID string, id int64, comments string) (core.MonthlyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok || r.UserID != userID {
		return core.MonthlyReport{}, core.ErrReportNotFound
	}
	r.Comments = comments
	s.reports[id] = r
	return r, nil
}

func (s *Store) UnlockLastReport(_ context.Context, userID string, id int64) (core.MonthlyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok || r.UserID != userID {
		return core.MonthlyReport{}, core.ErrReportNotFound
	}
	chain := s.listLocked(userID, r.PeriodYear)
	if len(chain) == 0 || chain[len(chain)-1].ID != id {
		return core.MonthlyReport{}, core.ErrNotLastReport
	}
	r.Locked = false
	s.reports[id] = r
	return r, nil
}

func (s *Store) ListUnsyncedReports(_ context.Context, limit int) ([]core.MonthlyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.MonthlyReport
	for _, r := range s.reports {
		if r.Locked && !r.Synced {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkReportSynced(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return core.ErrReportNotFound
	}
	r.Synced = true
	s.reports[id] = r
	return nil
}

// checkReportRow mirrors the SQLite CHECK constraints.
func checkReportRow(r core.MonthlyReport) error {
	switch {
	case r.MonthIndex < 0 || r.MonthIndex >= core.MonthsPerYear:
		return fmt.Errorf("month index %d out of range: %w", r.MonthIndex, core.ErrConstraintViolation)
	case r.LeftoverMinutes < 0 || r.LeftoverMinutes > 59:
		return fmt.Errorf("leftover %d out of range: %w", r.LeftoverMinutes, core.ErrConstraintViolation)
	case r.TotalMinutes < 0 || r.EffectiveMinutes < 0 || r.WholeHours < 0 ||
		r.CarriedInMinutes < 0 || r.SacredServiceMinutes < 0 || r.DistinctStudies < 0:
		return fmt.Errorf("negative numeric field: %w", core.ErrConstraintViolation)
	}
	return nil
}
