package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Preaching     ActivityKind = "preaching"
	BibleCourse   ActivityKind = "bible_course"
	SacredService ActivityKind = "sacred_service"
)

type (
	ActivityKind string

	Date struct {
		time.Time
	}

	// Activity is a single calendar entry. Minutes may be stored directly
	// or derived from the start/end clock pair; see DurationMinutes.
	Activity struct {
		ID        int64
		UserID    string
		Date      Date
		Kind      ActivityKind
		Minutes   *int
		StartTime string // "HH:MM" or "HH:MM:SS", empty when unset
		EndTime   string
		ContactID string // only meaningful for bible_course entries
		Title     string
		CreatedAt time.Time
	}

	Contact struct {
		ID        string
		UserID    string
		Name      string
		Color     string
		CreatedAt time.Time
	}
)

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrAlreadyComplete    = errors.New("all twelve months are already closed")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrReportNotFound     = errors.New("report not found")
	ErrActivityNotFound   = errors.New("activity not found")
	ErrNotLastReport      = errors.New("only the most recent report can be unlocked")
	ErrMonthLocked        = errors.New("month is closed by a locked report")

	ErrInvalidKind    = errors.New("invalid activity kind")
	ErrInvalidDate    = errors.New("invalid activity date")
	ErrInvalidMinutes = errors.New("invalid minutes")
	ErrEmptyName      = errors.New("empty contact name")
)

// NewDate creates a Date from year, month, day at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ISO returns the date formatted as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (k ActivityKind) Validate() error {
	switch k {
	case Preaching, BibleCourse, SacredService:
		return nil
	}
	return ErrInvalidKind
}

func (a Activity) Validate() error {
	if err := a.Date.Validate(); err != nil {
		return err
	}
	if err := a.Kind.Validate(); err != nil {
		return err
	}
	if a.Minutes != nil && *a.Minutes < 0 {
		return ErrInvalidMinutes
	}
	if a.StartTime != "" {
		if _, err := ParseClock(a.StartTime); err != nil {
			return err
		}
	}
	if a.EndTime != "" {
		if _, err := ParseClock(a.EndTime); err != nil {
			return err
		}
	}
	if len(a.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	return nil
}

func (c Contact) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	if len(c.Name) > 120 {
		return errors.New("name too long (max 120 characters)")
	}
	return nil
}
