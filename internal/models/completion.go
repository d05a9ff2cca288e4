package models

import (
	"time"

	"github.com/google/uuid"
)

// Completion records whether a habit was completed on a calendar date.
// A record with Completed=false is a deliberate "not completed" mark, which is
// distinct from the absence of a record. At most one completion exists per
// (HabitID, Date) pair; the local store enforces this with a unique constraint
// and overwrites rather than duplicating.
type Completion struct {
	ID           uuid.UUID  `json:"id"`
	HabitID      uuid.UUID  `json:"habit_id"`
	Date         time.Time  `json:"date"`
	Completed    bool       `json:"completed"`
	CompletedAt  time.Time  `json:"completed_at"`
	SyncStatus   SyncStatus `json:"sync_status"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// FreshnessTimestamp returns the timestamp used for last-writer-wins merges,
// mirroring Habit.FreshnessTimestamp. Completions that have never synced use
// their completion instant.
func (c *Completion) FreshnessTimestamp() time.Time {
	if c.LastSyncedAt != nil {
		return *c.LastSyncedAt
	}
	return c.CompletedAt
}
