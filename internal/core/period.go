package core

import "time"

// TheocraticStartMonth is September: month index 0 of every theocratic year.
const TheocraticStartMonth = time.September

// MonthsPerYear is the fixed length of the report chain.
const MonthsPerYear = 12

// Period is a half-open month window [Start, End).
type Period struct {
	Start Date
	End   Date
}

// Contains reports whether d falls inside the window.
func (p Period) Contains(d Date) bool {
	return !d.Before(p.Start.Time) && d.Before(p.End.Time)
}

// TheocraticYearBase returns the starting calendar year of the theocratic
// year containing d: September..December map to d's year, January..August
// to the year before.
func TheocraticYearBase(d Date) int {
	if d.Month() >= TheocraticStartMonth {
		return d.Year()
	}
	return d.Year() - 1
}

// MonthIndexOf returns the month index of d within the theocratic year
// starting at baseYear. The result may fall outside 0..11 when d is not
// part of that year.
func MonthIndexOf(baseYear int, d Date) int {
	return (d.Year()-baseYear)*12 + int(d.Month()-TheocraticStartMonth)
}

// MonthRange returns the [start, end) window for a (baseYear, monthIndex)
// pair. time.Date normalizes month overflow, so index 4 of 2024 lands on
// January 2025.
func MonthRange(baseYear, monthIndex int) Period {
	start := time.Date(baseYear, TheocraticStartMonth+time.Month(monthIndex), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(baseYear, TheocraticStartMonth+time.Month(monthIndex+1), 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: Date{Time: start}, End: Date{Time: end}}
}
