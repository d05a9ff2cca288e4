package models

import (
	"time"

	"github.com/google/uuid"
)

// RecurrencePolicy represents how often a habit is expected to be completed
type RecurrencePolicy string

const (
	RecurrenceDaily  RecurrencePolicy = "daily"
	RecurrenceWeekly RecurrencePolicy = "weekly"
)

// Priority represents the user-assigned priority of a habit
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Weekday is a target weekday for weekly habits
type Weekday string

const (
	WeekdayMonday    Weekday = "monday"
	WeekdayTuesday   Weekday = "tuesday"
	WeekdayWednesday Weekday = "wednesday"
	WeekdayThursday  Weekday = "thursday"
	WeekdayFriday    Weekday = "friday"
	WeekdaySaturday  Weekday = "saturday"
	WeekdaySunday    Weekday = "sunday"
)

var weekdayTimes = map[Weekday]time.Weekday{
	WeekdayMonday:    time.Monday,
	WeekdayTuesday:   time.Tuesday,
	WeekdayWednesday: time.Wednesday,
	WeekdayThursday:  time.Thursday,
	WeekdayFriday:    time.Friday,
	WeekdaySaturday:  time.Saturday,
	WeekdaySunday:    time.Sunday,
}

// Time converts the weekday to its time.Weekday equivalent
func (w Weekday) Time() (time.Weekday, bool) {
	wd, ok := weekdayTimes[w]
	return wd, ok
}

// Valid reports whether the weekday is one of the known values
func (w Weekday) Valid() bool {
	_, ok := weekdayTimes[w]
	return ok
}

// Habit represents a tracked habit. CurrentStreak and LastCompletedDate are
// derived from the habit's completion set and are recomputed after every
// completion mutation or remote merge; they are never authoritative on their own.
type Habit struct {
	ID                uuid.UUID        `json:"id"`
	UserID            uuid.UUID        `json:"user_id"`
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	Recurrence        RecurrencePolicy `json:"recurrence"`
	TargetWeekdays    []Weekday        `json:"target_weekdays,omitempty"`
	Priority          Priority         `json:"priority"`
	Category          string           `json:"category"`
	CurrentStreak     int              `json:"current_streak"`
	LastCompletedDate *time.Time       `json:"last_completed_date,omitempty"`
	SyncStatus        SyncStatus       `json:"sync_status"`
	LastSyncedAt      *time.Time       `json:"last_synced_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// FreshnessTimestamp returns the timestamp used for last-writer-wins conflict
// resolution: the last confirmed sync time, falling back to creation time for
// records that have never synced.
func (h *Habit) FreshnessTimestamp() time.Time {
	if h.LastSyncedAt != nil {
		return *h.LastSyncedAt
	}
	return h.CreatedAt
}
