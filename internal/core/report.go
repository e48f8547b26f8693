package core

import "time"

type (
	// MonthTotals is the Aggregator's result for one month window.
	MonthTotals struct {
		TotalMinutes         int // preaching only
		DistinctStudies      int
		SacredServiceMinutes int
		SacredServiceCount   int
	}

	// Closure is the rollover arithmetic applied at month close: raw
	// preaching minutes plus the carry from the previous month, split
	// into whole hours and a sub-60 remainder that carries forward.
	Closure struct {
		CarriedIn        int
		EffectiveMinutes int
		WholeHours       int
		LeftoverMinutes  int
	}

	// MonthlyReport is one row of the sequential closure chain.
	MonthlyReport struct {
		ID                   int64
		UserID               string
		PeriodYear           int
		MonthIndex           int // 0 = September
		PeriodStart          Date
		PeriodEnd            Date // exclusive
		TotalMinutes         int
		CarriedInMinutes     int
		CarriedOutMinutes    int
		WholeHours           int
		LeftoverMinutes      int
		EffectiveMinutes     int
		DistinctStudies      int
		SacredServiceMinutes int
		Comments             string
		Locked               bool
		Synced               bool
		CreatedAt            time.Time
	}

	// YearSummary aggregates a full chain for display and export.
	YearSummary struct {
		PeriodYear           int
		MonthsClosed         int
		TotalWholeHours      int
		FinalLeftoverMinutes int
		SacredServiceMinutes int
		DistinctStudiesMax   int
	}
)

// Close computes the closure of a month from its raw preaching total and
// the previous month's leftover. Leftover is always in 0..59.
func Close(totalMinutes, carriedIn int) Closure {
	effective := totalMinutes + carriedIn
	return Closure{
		CarriedIn:        carriedIn,
		EffectiveMinutes: effective,
		WholeHours:       effective / 60,
		LeftoverMinutes:  effective % 60,
	}
}

// Apply writes a closure and fresh totals into the report's numeric
// fields. Comments and CreatedAt are left alone: narrative text is a
// point-in-time artifact of generation, not a derived value.
func (r *MonthlyReport) Apply(t MonthTotals, c Closure) {
	r.TotalMinutes = t.TotalMinutes
	r.DistinctStudies = t.DistinctStudies
	r.SacredServiceMinutes = t.SacredServiceMinutes
	r.CarriedInMinutes = c.CarriedIn
	r.CarriedOutMinutes = c.LeftoverMinutes
	r.WholeHours = c.WholeHours
	r.LeftoverMinutes = c.LeftoverMinutes
	r.EffectiveMinutes = c.EffectiveMinutes
}

// Summarize folds an ordered chain into its year totals.
func Summarize(year int, reports []MonthlyReport) YearSummary {
	s := YearSummary{PeriodYear: year, MonthsClosed: len(reports)}
	for _, r := range reports {
		s.TotalWholeHours += r.WholeHours
		s.SacredServiceMinutes += r.SacredServiceMinutes
		if r.DistinctStudies > s.DistinctStudiesMax {
			s.DistinctStudiesMax = r.DistinctStudies
		}
	}
	if len(reports) > 0 {
		s.FinalLeftoverMinutes = reports[len(reports)-1].LeftoverMinutes
	}
	return s
}
