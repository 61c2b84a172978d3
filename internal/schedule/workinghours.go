/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldlinehq/fieldline/internal/models"
)

// HoursResolver converts a recurring weekly schedule plus calendar
// exceptions into concrete UTC windows for a requested service window.
type HoursResolver interface {
	Resolve(weekly []models.WeeklyWorkingHours, serviceWindow TimeWindow, timezone string, calendar *models.ContractorCalendar) ([]TimeWindow, error)
}

// WorkingHoursResolver is the default HoursResolver.
type WorkingHoursResolver struct {
	logger zerolog.Logger
}

// NewWorkingHoursResolver creates the default resolver.
func NewWorkingHoursResolver(logger zerolog.Logger) *WorkingHoursResolver {
	return &WorkingHoursResolver{
		logger: logger.With().Str("component", "working_hours_resolver").Logger(),
	}
}

// Resolve walks each contractor-local calendar date overlapping the service
// window. Holidays drop the date entirely, an override exception replaces the
// weekly entry for that date, and otherwise every weekly entry matching the
// weekday emits one window. Resolved local intervals are clipped to the
// service window and returned in UTC, ordered by start.
func (r *WorkingHoursResolver) Resolve(weekly []models.WeeklyWorkingHours, serviceWindow TimeWindow, timezone string, calendar *models.ContractorCalendar) ([]TimeWindow, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidTimezone, timezone)
	}

	for _, entry := range weekly {
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("weekly entry: %w", err)
		}
	}

	byDay := make(map[int][]models.WeeklyWorkingHours, len(weekly))
	for _, entry := range weekly {
		byDay[entry.DayOfWeek] = append(byDay[entry.DayOfWeek], entry)
	}

	// Pad one day on each side so entries whose own timezone differs from
	// the contractor timezone still land inside the iteration range.
	first := serviceWindow.Start.In(loc).AddDate(0, 0, -1)
	last := serviceWindow.End.In(loc).AddDate(0, 0, 1)

	var windows []TimeWindow
	for day := startOfDay(first); !day.After(last); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		if calendar.IsHoliday(date) {
			continue
		}

		if override, ok := calendar.ExceptionFor(date); ok {
			if err := override.Validate(); err != nil {
				return nil, fmt.Errorf("override for %s: %w", date, err)
			}
			if w, ok := localWindow(day, *override.StartMinute, *override.EndMinute, loc, serviceWindow); ok {
				windows = append(windows, w)
			}
			continue
		}

		for _, entry := range byDay[int(day.Weekday())] {
			entryLoc := loc
			if entry.Timezone != timezone {
				entryLoc, err = time.LoadLocation(entry.Timezone)
				if err != nil {
					return nil, fmt.Errorf("%w: %q", models.ErrInvalidTimezone, entry.Timezone)
				}
			}
			if w, ok := localWindow(day, entry.StartMinute, entry.EndMinute, entryLoc, serviceWindow); ok {
				windows = append(windows, w)
			}
		}
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].Start.Before(windows[j].Start)
	})

	return windows, nil
}

// localWindow builds the UTC window for minutes-of-day bounds on one local
// date, clipped to the service window.
func localWindow(day time.Time, startMin, endMin int, loc *time.Location, serviceWindow TimeWindow) (TimeWindow, bool) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, startMin, 0, 0, loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), 0, endMin, 0, 0, loc)
	return TimeWindow{Start: start.UTC(), End: end.UTC()}.Clip(serviceWindow)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
