package services

import (
	"context"
	"fmt"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/store"
)

// Aggregator reduces raw activities into per-month totals. It reads only
// the activity store and never looks at report state, which is what makes
// recalculation safe: re-running it for the same window always yields a
// fresh, correct total.
type Aggregator struct {
	activities store.ActivityStore
}

func NewAggregator(activities store.ActivityStore) *Aggregator {
	return &Aggregator{activities: activities}
}

// AggregateMonth scans the (year, monthIndex) window for the user and sums
// preaching and sacred-service minutes separately. Bible-course minutes are
// ignored; those entries only contribute their contact to the distinct
// study count.
func (g *Aggregator) AggregateMonth(ctx context.Context, userID string, year, monthIndex int) (core.MonthTotals, error) {
	if userID == "" {
		return core.MonthTotals{}, core.ErrNotAuthenticated
	}

	period := core.MonthRange(year, monthIndex)
	activities, err := g.activities.ListActivities(ctx, userID, period)
	if err != nil {
		return core.MonthTotals{}, fmt.Errorf("list activities: %w", err)
	}

	var totals core.MonthTotals
	studies := make(map[string]struct{})
	for _, a := range activities {
		switch a.Kind {
		case core.Preaching:
			totals.TotalMinutes += a.DurationMinutes()
		case core.SacredService:
			totals.SacredServiceMinutes += a.DurationMinutes()
			totals.SacredServiceCount++
		case core.BibleCourse:
			if a.ContactID != "" {
				studies[a.ContactID] = struct{}{}
			}
		}
	}
	totals.DistinctStudies = len(studies)

	return totals, nil
}

// sacredServiceEntries returns the month's sacred-service activities in
// date order, for the generation-time auto-summary.
func (g *Aggregator) sacredServiceEntries(ctx context.Context, userID string, year, monthIndex int) ([]core.Activity, error) {
	period := core.MonthRange(year, monthIndex)
	activities, err := g.activities.ListActivities(ctx, userID, period)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	var out []core.Activity
	for _, a := range activities {
		if a.Kind == core.SacredService {
			out = append(out, a)
		}
	}
	return out, nil
}
