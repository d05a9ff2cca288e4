package models

import (
	"testing"
	"time"
)

func TestSyncStatus_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value SyncStatus
		valid bool
	}{
		{"pending", SyncStatusPending, true},
		{"syncing", SyncStatusSyncing, true},
		{"synced", SyncStatusSynced, true},
		{"failed", SyncStatusFailed, true},
		{"invalid", SyncStatus("invalid"), false},
		{"empty", SyncStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.value.Valid(); got != tt.valid {
				t.Errorf("Valid(%s) = %v, want %v", tt.value, got, tt.valid)
			}
		})
	}
}

func TestSyncStatus_NeedsPush(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value SyncStatus
		want  bool
	}{
		{SyncStatusPending, true},
		{SyncStatusFailed, true},
		{SyncStatusSyncing, false},
		{SyncStatusSynced, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.value), func(t *testing.T) {
			t.Parallel()
			if got := tt.value.NeedsPush(); got != tt.want {
				t.Errorf("NeedsPush(%s) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestWeekday_Time(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value Weekday
		want  time.Weekday
		ok    bool
	}{
		{WeekdayMonday, time.Monday, true},
		{WeekdaySunday, time.Sunday, true},
		{Weekday("funday"), 0, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.value), func(t *testing.T) {
			t.Parallel()
			got, ok := tt.value.Time()
			if ok != tt.ok {
				t.Fatalf("Time(%s) ok = %v, want %v", tt.value, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("Time(%s) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestHabit_FreshnessTimestamp(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	synced := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	h := &Habit{CreatedAt: created}
	if got := h.FreshnessTimestamp(); !got.Equal(created) {
		t.Errorf("Never-synced habit freshness = %v, want creation time %v", got, created)
	}

	h.LastSyncedAt = &synced
	if got := h.FreshnessTimestamp(); !got.Equal(synced) {
		t.Errorf("Synced habit freshness = %v, want last sync time %v", got, synced)
	}
}

func TestCompletion_FreshnessTimestamp(t *testing.T) {
	t.Parallel()

	completedAt := time.Date(2024, 6, 13, 9, 30, 0, 0, time.UTC)
	synced := time.Date(2024, 6, 13, 10, 0, 0, 0, time.UTC)

	c := &Completion{CompletedAt: completedAt}
	if got := c.FreshnessTimestamp(); !got.Equal(completedAt) {
		t.Errorf("Never-synced completion freshness = %v, want completion instant %v", got, completedAt)
	}

	c.LastSyncedAt = &synced
	if got := c.FreshnessTimestamp(); !got.Equal(synced) {
		t.Errorf("Synced completion freshness = %v, want last sync time %v", got, synced)
	}
}
