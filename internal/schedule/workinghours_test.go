package schedule

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fieldlinehq/fieldline/internal/models"
)

// Monday, March 2nd 2026 is before the US DST transition, so New York sits at
// UTC-5 throughout these fixtures.
const nyTZ = "America/New_York"

func mondayWeekly() []models.WeeklyWorkingHours {
	return []models.WeeklyWorkingHours{
		{DayOfWeek: 1, StartMinute: 9 * 60, EndMinute: 17 * 60, Timezone: nyTZ},
	}
}

func TestResolveWeekdayWindow(t *testing.T) {
	resolver := NewWorkingHoursResolver(zerolog.Nop())
	service := window(t, "2026-03-02T00:00:00Z", "2026-03-03T00:00:00Z")

	windows, err := resolver.Resolve(mondayWeekly(), service, nyTZ, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1: %v", len(windows), windows)
	}

	// 09:00-17:00 ET is 14:00-22:00 UTC.
	want := window(t, "2026-03-02T14:00:00Z", "2026-03-02T22:00:00Z")
	if windows[0] != want {
		t.Fatalf("window = %v, want %v", windows[0], want)
	}
}

func TestResolveClipsToServiceWindow(t *testing.T) {
	resolver := NewWorkingHoursResolver(zerolog.Nop())
	service := window(t, "2026-03-02T16:00:00Z", "2026-03-02T20:00:00Z")

	windows, err := resolver.Resolve(mondayWeekly(), service, nyTZ, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1: %v", len(windows), windows)
	}
	if windows[0] != service {
		t.Fatalf("window = %v, want clipped to %v", windows[0], service)
	}
}

func TestResolveHolidayDropsDate(t *testing.T) {
	resolver := NewWorkingHoursResolver(zerolog.Nop())
	service := window(t, "2026-03-02T00:00:00Z", "2026-03-04T00:00:00Z")
	weekly := append(mondayWeekly(), models.WeeklyWorkingHours{
		DayOfWeek: 2, StartMinute: 9 * 60, EndMinute: 17 * 60, Timezone: nyTZ,
	})
	calendar := &models.ContractorCalendar{
		Holidays: map[string]struct{}{"2026-03-02": {}},
	}

	windows, err := resolver.Resolve(weekly, service, nyTZ, calendar)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1 (holiday dropped): %v", len(windows), windows)
	}
	want := window(t, "2026-03-03T14:00:00Z", "2026-03-03T22:00:00Z")
	if windows[0] != want {
		t.Fatalf("window = %v, want %v", windows[0], want)
	}
}

func TestResolveOverrideReplacesWeeklyEntry(t *testing.T) {
	resolver := NewWorkingHoursResolver(zerolog.Nop())
	service := window(t, "2026-03-02T00:00:00Z", "2026-03-03T00:00:00Z")

	start, end := 12*60, 15*60
	calendar := &models.ContractorCalendar{
		Exceptions: []models.CalendarException{
			{Type: models.ExceptionOverride, Date: "2026-03-02", StartMinute: &start, EndMinute: &end},
		},
	}

	windows, err := resolver.Resolve(mondayWeekly(), service, nyTZ, calendar)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1: %v", len(windows), windows)
	}

	// Override 12:00-15:00 ET is 17:00-20:00 UTC; the weekly entry is gone.
	want := window(t, "2026-03-02T17:00:00Z", "2026-03-02T20:00:00Z")
	if windows[0] != want {
		t.Fatalf("window = %v, want %v", windows[0], want)
	}
}

func TestResolveEmptyWeeklyYieldsNoWindows(t *testing.T) {
	resolver := NewWorkingHoursResolver(zerolog.Nop())
	service := window(t, "2026-03-02T00:00:00Z", "2026-03-03T00:00:00Z")

	windows, err := resolver.Resolve(nil, service, nyTZ, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(windows) != 0 {
		t.Fatalf("got %d windows, want 0", len(windows))
	}
}

func TestResolveRejectsBadInputs(t *testing.T) {
	resolver := NewWorkingHoursResolver(zerolog.Nop())
	service := window(t, "2026-03-02T00:00:00Z", "2026-03-03T00:00:00Z")

	if _, err := resolver.Resolve(mondayWeekly(), service, "Mars/Olympus", nil); !errors.Is(err, models.ErrInvalidTimezone) {
		t.Fatalf("bad timezone: err = %v, want ErrInvalidTimezone", err)
	}

	inverted := []models.WeeklyWorkingHours{
		{DayOfWeek: 1, StartMinute: 17 * 60, EndMinute: 9 * 60, Timezone: nyTZ},
	}
	if _, err := resolver.Resolve(inverted, service, nyTZ, nil); !errors.Is(err, models.ErrInvalidDayRange) {
		t.Fatalf("inverted entry: err = %v, want ErrInvalidDayRange", err)
	}
}

func TestResolveMultiDayOrdering(t *testing.T) {
	resolver := NewWorkingHoursResolver(zerolog.Nop())
	service := window(t, "2026-03-02T00:00:00Z", "2026-03-05T00:00:00Z")
	weekly := []models.WeeklyWorkingHours{
		{DayOfWeek: 3, StartMinute: 8 * 60, EndMinute: 12 * 60, Timezone: nyTZ},
		{DayOfWeek: 1, StartMinute: 9 * 60, EndMinute: 17 * 60, Timezone: nyTZ},
		{DayOfWeek: 2, StartMinute: 10 * 60, EndMinute: 14 * 60, Timezone: nyTZ},
	}

	windows, err := resolver.Resolve(weekly, service, nyTZ, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(windows) != 3 {
		t.Fatalf("got %d windows, want 3: %v", len(windows), windows)
	}
	for i := 1; i < len(windows); i++ {
		if !windows[i-1].Start.Before(windows[i].Start) {
			t.Fatalf("windows out of order at %d: %v", i, windows)
		}
	}
}
