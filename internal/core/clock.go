// Package core provides the domain model for the predicación tracker.
//
// This file contains clock-time parsing and the minute derivation rule for
// activities that store a start/end pair instead of an explicit duration.
package core

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidClock is returned for clock strings outside "HH:MM[:SS]".
var ErrInvalidClock = errors.New("invalid clock time")

// ParseClock parses "HH:MM" or "HH:MM:SS" into minutes since midnight.
// Seconds are accepted but discarded; durations are whole minutes.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, ErrInvalidClock
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, ErrInvalidClock
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, ErrInvalidClock
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return 0, ErrInvalidClock
		}
	}
	return h*60 + m, nil
}

// DurationMinutes resolves the minute value of an activity.
//
// Stored minutes win when present. Otherwise the duration is the distance
// from start to end clock time, clamped to zero when the pair is missing,
// unparsable, or inverted.
func (a Activity) DurationMinutes() int {
	if a.Minutes != nil {
		if *a.Minutes < 0 {
			return 0
		}
		return *a.Minutes
	}
	if a.StartTime == "" || a.EndTime == "" {
		return 0
	}
	start, err := ParseClock(a.StartTime)
	if err != nil {
		return 0
	}
	end, err := ParseClock(a.EndTime)
	if err != nil {
		return 0
	}
	if end <= start {
		return 0
	}
	return end - start
}
