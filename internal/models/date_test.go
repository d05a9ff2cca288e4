package models

import (
	"testing"
	"time"
)

func TestDateOnly(t *testing.T) {
	t.Parallel()

	nyc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("Failed to load location: %v", err)
	}

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			"already midnight UTC",
			time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC),
		},
		{
			"afternoon truncates",
			time.Date(2024, 6, 13, 15, 42, 7, 123, time.UTC),
			time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC),
		},
		{
			"local evening crosses into next UTC day",
			time.Date(2024, 6, 13, 22, 0, 0, 0, nyc),
			time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := DateOnly(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("DateOnly(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("DateOnly(%v) returned non-UTC location %v", tt.in, got.Location())
			}
		})
	}
}

func TestSameDate(t *testing.T) {
	t.Parallel()

	morning := time.Date(2024, 6, 13, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 6, 13, 23, 59, 59, 0, time.UTC)
	nextDay := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)

	if !SameDate(morning, evening) {
		t.Error("Expected morning and evening of the same day to match")
	}
	if SameDate(evening, nextDay) {
		t.Error("Expected adjacent days not to match")
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	got, err := ParseDate("2024-06-13")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	want := time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDate = %v, want %v", got, want)
	}

	for _, bad := range []string{"13/06/2024", "2024-6-13", "2024-06-13T00:00:00Z", ""} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestFormatDate(t *testing.T) {
	t.Parallel()

	in := time.Date(2024, 6, 13, 15, 42, 0, 0, time.UTC)
	if got := FormatDate(in); got != "2024-06-13" {
		t.Errorf("FormatDate = %q, want %q", got, "2024-06-13")
	}
}
