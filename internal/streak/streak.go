// Package streak derives a habit's consecutive-completion streak from its set
// of completed dates. Calculation is a pure function of (policy, date set,
// today): no hidden state, identical inputs always yield identical results.
package streak

import (
	"time"

	"github.com/strideapp/habitsync/internal/models"
)

// Result holds the derived streak fields cached on a habit record
type Result struct {
	Length        int
	LastCompleted *time.Time
}

// Calculate derives the current streak length and most recent completion date
// for a habit. completedDates may be sparse and unordered; only entries
// representing an actual completion should be included. today anchors the
// backward walk and must be a calendar date (UTC midnight).
func Calculate(policy models.RecurrencePolicy, targetWeekdays []models.Weekday, completedDates []time.Time, today time.Time) Result {
	set := make(map[time.Time]struct{}, len(completedDates))
	var last *time.Time
	for _, d := range completedDates {
		day := models.DateOnly(d)
		set[day] = struct{}{}
		if last == nil || day.After(*last) {
			v := day
			last = &v
		}
	}

	today = models.DateOnly(today)

	switch policy {
	case models.RecurrenceWeekly:
		// A weekly habit with no target weekdays can never be satisfied.
		if len(targetWeekdays) == 0 {
			return Result{}
		}
		// An empty completion set is always streak zero, even when the current
		// week's targets have not come due yet.
		if len(set) == 0 {
			return Result{}
		}
		return Result{Length: weeklyStreak(targetWeekdays, set, today), LastCompleted: last}
	default:
		return Result{Length: dailyStreak(set, today), LastCompleted: last}
	}
}

// dailyStreak counts consecutive completed days ending at today, or at
// yesterday when today is not yet completed. An isolated past date does not
// start a streak.
func dailyStreak(set map[time.Time]struct{}, today time.Time) int {
	day := today
	if _, ok := set[day]; !ok {
		day = day.AddDate(0, 0, -1)
	}

	count := 0
	for {
		if _, ok := set[day]; !ok {
			return count
		}
		count++
		day = day.AddDate(0, 0, -1)
	}
}

// weeklyStreak counts consecutive satisfied Monday-to-Sunday weeks ending at
// the current week. Past weeks must have a completion on every target weekday.
// The current week counts while it has not yet failed: a target weekday only
// disqualifies it once that day has passed without a completion.
func weeklyStreak(targets []models.Weekday, set map[time.Time]struct{}, today time.Time) int {
	week := weekStart(today)

	if weekFailedSoFar(targets, set, week, today) {
		return 0
	}

	count := 1
	for {
		week = week.AddDate(0, 0, -7)
		if !weekSatisfied(targets, set, week) {
			return count
		}
		count++
	}
}

// weekStart returns the Monday of the week containing d
func weekStart(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// weekSatisfied reports whether every target weekday in the week starting at
// monday has a completion.
func weekSatisfied(targets []models.Weekday, set map[time.Time]struct{}, monday time.Time) bool {
	for _, t := range targets {
		wd, ok := t.Time()
		if !ok {
			return false
		}
		if _, done := set[dateOfWeekday(monday, wd)]; !done {
			return false
		}
	}
	return true
}

// weekFailedSoFar reports whether the current week has already missed a target
// weekday. A target falling on today or later has not yet had a chance to
// fail, so only days strictly before today disqualify the week.
func weekFailedSoFar(targets []models.Weekday, set map[time.Time]struct{}, monday, today time.Time) bool {
	for _, t := range targets {
		wd, ok := t.Time()
		if !ok {
			return true
		}
		day := dateOfWeekday(monday, wd)
		if !day.Before(today) {
			continue
		}
		if _, done := set[day]; !done {
			return true
		}
	}
	return false
}

// dateOfWeekday returns the date of the given weekday within the week
// starting at monday.
func dateOfWeekday(monday time.Time, wd time.Weekday) time.Time {
	offset := (int(wd) + 6) % 7
	return monday.AddDate(0, 0, offset)
}
