package streak

import (
	"testing"
	"time"

	"github.com/strideapp/habitsync/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// thursday is a fixed anchor: 2024-06-13 falls on a Thursday, in the week
// starting Monday 2024-06-10.
var thursday = date(2024, time.June, 13)

func TestCalculate_Daily(t *testing.T) {
	t.Parallel()

	today := thursday

	tests := []struct {
		name          string
		completed     []time.Time
		wantLength    int
		wantLast      *time.Time
	}{
		{
			name:       "empty set",
			completed:  nil,
			wantLength: 0,
			wantLast:   nil,
		},
		{
			name:       "three consecutive days ending today",
			completed:  []time.Time{today, today.AddDate(0, 0, -1), today.AddDate(0, 0, -2)},
			wantLength: 3,
			wantLast:   &today,
		},
		{
			name:       "two days ending yesterday, today not completed",
			completed:  []time.Time{today.AddDate(0, 0, -1), today.AddDate(0, 0, -2)},
			wantLength: 2,
			wantLast:   ptr(today.AddDate(0, 0, -1)),
		},
		{
			name:       "gap before yesterday stops the count",
			completed:  []time.Time{today, today.AddDate(0, 0, -1), today.AddDate(0, 0, -3)},
			wantLength: 2,
			wantLast:   &today,
		},
		{
			name:       "isolated past date does not start a streak",
			completed:  []time.Time{today.AddDate(0, 0, -5)},
			wantLength: 0,
			wantLast:   ptr(today.AddDate(0, 0, -5)),
		},
		{
			name:       "only today",
			completed:  []time.Time{today},
			wantLength: 1,
			wantLast:   &today,
		},
		{
			name:       "unordered input with duplicate entries",
			completed:  []time.Time{today.AddDate(0, 0, -1), today, today.AddDate(0, 0, -1)},
			wantLength: 2,
			wantLast:   &today,
		},
		{
			name:       "timestamps with time-of-day are bucketed by date",
			completed:  []time.Time{today.Add(14 * time.Hour), today.AddDate(0, 0, -1).Add(23 * time.Hour)},
			wantLength: 2,
			wantLast:   &today,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Calculate(models.RecurrenceDaily, nil, tt.completed, today)
			if got.Length != tt.wantLength {
				t.Errorf("Length = %d, want %d", got.Length, tt.wantLength)
			}
			assertLast(t, got.LastCompleted, tt.wantLast)
		})
	}
}

func TestCalculate_DailyConsecutiveRunProperty(t *testing.T) {
	t.Parallel()

	// For any non-empty run of consecutive days ending today, the streak
	// equals the run length.
	for n := 1; n <= 30; n++ {
		var set []time.Time
		for i := 0; i < n; i++ {
			set = append(set, thursday.AddDate(0, 0, -i))
		}
		got := Calculate(models.RecurrenceDaily, nil, set, thursday)
		if got.Length != n {
			t.Fatalf("run of %d consecutive days: Length = %d, want %d", n, got.Length, n)
		}
		if got.LastCompleted == nil || !got.LastCompleted.Equal(thursday) {
			t.Fatalf("run of %d consecutive days: LastCompleted = %v, want %v", n, got.LastCompleted, thursday)
		}
	}
}

func TestCalculate_Weekly(t *testing.T) {
	t.Parallel()

	monday := date(2024, time.June, 10)
	wednesday := date(2024, time.June, 12)
	friday := date(2024, time.June, 14)
	prevMonday := monday.AddDate(0, 0, -7)
	prevWednesday := wednesday.AddDate(0, 0, -7)
	prevFriday := friday.AddDate(0, 0, -7)

	mwf := []models.Weekday{models.WeekdayMonday, models.WeekdayWednesday, models.WeekdayFriday}

	tests := []struct {
		name       string
		targets    []models.Weekday
		completed  []time.Time
		today      time.Time
		wantLength int
		wantLast   *time.Time
	}{
		{
			name:       "empty target weekdays yields zero streak and nil last",
			targets:    nil,
			completed:  []time.Time{monday},
			today:      thursday,
			wantLength: 0,
			wantLast:   nil,
		},
		{
			name:       "empty completion set",
			targets:    mwf,
			completed:  nil,
			today:      monday,
			wantLength: 0,
			wantLast:   nil,
		},
		{
			name:       "current week satisfied so far, no history",
			targets:    mwf,
			completed:  []time.Time{monday, wednesday},
			today:      thursday,
			wantLength: 1,
			wantLast:   &wednesday,
		},
		{
			name:       "missed target earlier in current week",
			targets:    mwf,
			completed:  []time.Time{wednesday},
			today:      thursday,
			wantLength: 0,
			wantLast:   &wednesday,
		},
		{
			name:    "current week in progress extends a satisfied prior week",
			targets: mwf,
			completed: []time.Time{
				prevMonday, prevWednesday, prevFriday,
				monday, wednesday,
			},
			today:      thursday,
			wantLength: 2,
			wantLast:   &wednesday,
		},
		{
			name:    "unsatisfied prior week terminates the walk",
			targets: mwf,
			completed: []time.Time{
				prevMonday, prevFriday, // Wednesday missing last week
				monday, wednesday,
			},
			today:      thursday,
			wantLength: 1,
			wantLast:   &wednesday,
		},
		{
			name:       "target on today not yet completed does not fail the week",
			targets:    []models.Weekday{models.WeekdayThursday},
			completed:  []time.Time{date(2024, time.June, 6)}, // previous Thursday
			today:      thursday,
			wantLength: 2,
			wantLast:   ptr(date(2024, time.June, 6)),
		},
		{
			name:       "fully satisfied current week counts",
			targets:    []models.Weekday{models.WeekdayMonday},
			completed:  []time.Time{monday},
			today:      thursday,
			wantLength: 1,
			wantLast:   &monday,
		},
		{
			name:       "sunday belongs to the week of its preceding monday",
			targets:    []models.Weekday{models.WeekdaySunday},
			completed:  []time.Time{date(2024, time.June, 9)}, // Sunday of prior week
			today:      monday,
			wantLength: 2, // prior week satisfied + current week not yet due
			wantLast:   ptr(date(2024, time.June, 9)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Calculate(models.RecurrenceWeekly, tt.targets, tt.completed, tt.today)
			if got.Length != tt.wantLength {
				t.Errorf("Length = %d, want %d", got.Length, tt.wantLength)
			}
			assertLast(t, got.LastCompleted, tt.wantLast)
		})
	}
}

func TestCalculate_Pure(t *testing.T) {
	t.Parallel()

	completed := []time.Time{thursday, thursday.AddDate(0, 0, -1), thursday.AddDate(0, 0, -9)}

	first := Calculate(models.RecurrenceDaily, nil, completed, thursday)
	second := Calculate(models.RecurrenceDaily, nil, completed, thursday)

	if first.Length != second.Length {
		t.Errorf("repeated calculation diverged: %d vs %d", first.Length, second.Length)
	}
	assertLast(t, second.LastCompleted, first.LastCompleted)
}

func TestCalculate_LastCompletedIsMax(t *testing.T) {
	t.Parallel()

	// lastCompleted tracks the max of the set independently of streak length.
	completed := []time.Time{
		thursday.AddDate(0, 0, -20),
		thursday.AddDate(0, 0, -3),
		thursday.AddDate(0, 0, -11),
	}
	got := Calculate(models.RecurrenceDaily, nil, completed, thursday)
	if got.Length != 0 {
		t.Errorf("Length = %d, want 0", got.Length)
	}
	want := thursday.AddDate(0, 0, -3)
	assertLast(t, got.LastCompleted, &want)
}

func assertLast(t *testing.T, got, want *time.Time) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		t.Errorf("LastCompleted = %v, want %v", got, want)
	case !got.Equal(*want):
		t.Errorf("LastCompleted = %v, want %v", got, want)
	}
}

func ptr(t time.Time) *time.Time { return &t }
