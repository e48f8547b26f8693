package services

import (
	"context"
	"fmt"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/store"
)

// ActivityService handles calendar entries and enforces the cooperative
// month lock: once a month's report is locked, its activities are frozen
// until the report is explicitly unlocked.
type ActivityService struct {
	activities store.ActivityStore
	contacts   store.ContactStore
	reports    store.ReportStore
}

func NewActivityService(activities store.ActivityStore, contacts store.ContactStore, reports store.ReportStore) *ActivityService {
	return &ActivityService{
		activities: activities,
		contacts:   contacts,
		reports:    reports,
	}
}

func (s *ActivityService) Create(ctx context.Context, a core.Activity) (core.Activity, error) {
	if a.UserID == "" {
		return core.Activity{}, core.ErrNotAuthenticated
	}
	if err := a.Validate(); err != nil {
		return core.Activity{}, err
	}
	if err := s.ensureMonthOpen(ctx, a.UserID, a.Date); err != nil {
		return core.Activity{}, err
	}
	created, err := s.activities.CreateActivity(ctx, a)
	if err != nil {
		return core.Activity{}, fmt.Errorf("create activity: %w", err)
	}
	return created, nil
}

func (s *ActivityService) Update(ctx context.Context, a core.Activity) (core.Activity, error) {
	if a.UserID == "" {
		return core.Activity{}, core.ErrNotAuthenticated
	}
	if err := a.Validate(); err != nil {
		return core.Activity{}, err
	}
	existing, err := s.activities.GetActivity(ctx, a.UserID, a.ID)
	if err != nil {
		return core.Activity{}, fmt.Errorf("get activity: %w", err)
	}
	// Both the current month and the target month must be open, or a
	// record could be moved out of (or into) a closed period.
	if err := s.ensureMonthOpen(ctx, a.UserID, existing.Date); err != nil {
		return core.Activity{}, err
	}
	if !existing.Date.Equal(a.Date.Time) {
		if err := s.ensureMonthOpen(ctx, a.UserID, a.Date); err != nil {
			return core.Activity{}, err
		}
	}
	updated, err := s.activities.UpdateActivity(ctx, a)
	if err != nil {
		return core.Activity{}, fmt.Errorf("update activity: %w", err)
	}
	return updated, nil
}

func (s *ActivityService) Delete(ctx context.Context, userID string, id int64) error {
	if userID == "" {
		return core.ErrNotAuthenticated
	}
	existing, err := s.activities.GetActivity(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("get activity: %w", err)
	}
	if err := s.ensureMonthOpen(ctx, userID, existing.Date); err != nil {
		return err
	}
	if err := s.activities.DeleteActivity(ctx, userID, id); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return nil
}

// ListMonth returns the user's activities for a theocratic month window.
func (s *ActivityService) ListMonth(ctx context.Context, userID string, year, monthIndex int) ([]core.Activity, error) {
	if userID == "" {
		return nil, core.ErrNotAuthenticated
	}
	activities, err := s.activities.ListActivities(ctx, userID, core.MonthRange(year, monthIndex))
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

func (s *ActivityService) CreateContact(ctx context.Context, c core.Contact) (core.Contact, error) {
	if c.UserID == "" {
		return core.Contact{}, core.ErrNotAuthenticated
	}
	if err := c.Validate(); err != nil {
		return core.Contact{}, err
	}
	created, err := s.contacts.CreateContact(ctx, c)
	if err != nil {
		return core.Contact{}, fmt.Errorf("create contact: %w", err)
	}
	return created, nil
}

func (s *ActivityService) ListContacts(ctx context.Context, userID string) ([]core.Contact, error) {
	if userID == "" {
		return nil, core.ErrNotAuthenticated
	}
	contacts, err := s.contacts.ListContacts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

// ensureMonthOpen rejects writes into a month covered by a locked report.
func (s *ActivityService) ensureMonthOpen(ctx context.Context, userID string, d core.Date) error {
	year := core.TheocraticYearBase(d)
	index := core.MonthIndexOf(year, d)
	chain, err := s.reports.ListReports(ctx, userID, year)
	if err != nil {
		return fmt.Errorf("list reports: %w", err)
	}
	for _, r := range chain {
		if r.MonthIndex == index && r.Locked {
			return fmt.Errorf("%s falls in report %d/%d: %w",
				d.ISO(), r.PeriodYear, r.MonthIndex, core.ErrMonthLocked)
		}
	}
	return nil
}
