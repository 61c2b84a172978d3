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

// Daily-hour and consecutive-job limits per contractor-local calendar date.
const (
	TargetDailyHours = 8.0
	SoftCapHours     = 10.0
	HardStopHours    = 12.0

	MaxConsecutiveJobs  = 4
	DefaultBreakMinutes = 15
)

// FatigueResult is the decision record for one placement check.
type FatigueResult struct {
	Feasible             bool   `json:"feasible"`
	Reason               string `json:"reason,omitempty"`
	RequiredBreakMinutes int    `json:"required_break_minutes,omitempty"`
}

// Fatigue checks whether placing a job in a candidate window would violate
// daily-hour or consecutive-job limits.
type Fatigue interface {
	DailyHours(assignments []TimeWindow, date time.Time, timezone string) (float64, error)
	ConsecutiveJobCount(assignments []TimeWindow, before time.Time) int
	CheckFeasibility(proposed TimeWindow, assignments []TimeWindow, durationMinutes int, timezone string, rush bool, breakMinutes int) (FatigueResult, error)
}

// FatigueEvaluator is the default Fatigue implementation.
type FatigueEvaluator struct {
	logger zerolog.Logger
}

// NewFatigueEvaluator creates the default evaluator.
func NewFatigueEvaluator(logger zerolog.Logger) *FatigueEvaluator {
	return &FatigueEvaluator{
		logger: logger.With().Str("component", "fatigue_evaluator").Logger(),
	}
}

// DailyHours sums the assignment minutes overlapping the contractor-local
// calendar date containing date.
func (f *FatigueEvaluator) DailyHours(assignments []TimeWindow, date time.Time, timezone string) (float64, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", models.ErrInvalidTimezone, timezone)
	}

	local := date.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	day := TimeWindow{Start: dayStart.UTC(), End: dayStart.AddDate(0, 0, 1).UTC()}

	var total time.Duration
	for _, a := range assignments {
		if clipped, ok := a.Clip(day); ok {
			total += clipped.Duration()
		}
	}
	return total.Hours(), nil
}

// ConsecutiveJobCount walks backwards from the most recent assignment ending
// at or before before, counting assignments while the gap to the next-later
// one stays within DefaultBreakMinutes.
func (f *FatigueEvaluator) ConsecutiveJobCount(assignments []TimeWindow, before time.Time) int {
	var prior []TimeWindow
	for _, a := range assignments {
		if !a.End.After(before) {
			prior = append(prior, a)
		}
	}
	if len(prior) == 0 {
		return 0
	}

	sort.Slice(prior, func(i, j int) bool {
		return prior[i].End.Before(prior[j].End)
	})

	count := 1
	for i := len(prior) - 1; i > 0; i-- {
		gap := prior[i].Start.Sub(prior[i-1].End)
		if gap > DefaultBreakMinutes*time.Minute {
			break
		}
		count++
	}
	return count
}

// CheckFeasibility applies the daily-hour caps and the consecutive-job break
// rule to a proposed placement. The hard stop at HardStopHours holds even for
// rush jobs; the soft cap at SoftCapHours yields to the rush flag.
func (f *FatigueEvaluator) CheckFeasibility(proposed TimeWindow, assignments []TimeWindow, durationMinutes int, timezone string, rush bool, breakMinutes int) (FatigueResult, error) {
	if durationMinutes <= 0 {
		return FatigueResult{}, fmt.Errorf("%w: %d", ErrInvalidDuration, durationMinutes)
	}
	if breakMinutes <= 0 {
		breakMinutes = DefaultBreakMinutes
	}

	scheduled, err := f.DailyHours(assignments, proposed.Start, timezone)
	if err != nil {
		return FatigueResult{}, err
	}

	total := scheduled + float64(durationMinutes)/60
	if total > HardStopHours {
		return FatigueResult{
			Feasible: false,
			Reason:   fmt.Sprintf("daily total %.1fh exceeds %.0fh hard stop", total, HardStopHours),
		}, nil
	}
	if total > SoftCapHours && !rush {
		return FatigueResult{
			Feasible: false,
			Reason:   fmt.Sprintf("daily total %.1fh exceeds %.0fh cap for non-rush jobs", total, SoftCapHours),
		}, nil
	}

	if count := f.ConsecutiveJobCount(assignments, proposed.Start); count >= MaxConsecutiveJobs {
		gap := f.gapBefore(proposed.Start, assignments)
		if gap >= 0 && gap < time.Duration(breakMinutes)*time.Minute {
			needed := breakMinutes - int(gap.Minutes())
			return FatigueResult{
				Feasible:             false,
				Reason:               fmt.Sprintf("%d consecutive jobs require a %d minute break", count, breakMinutes),
				RequiredBreakMinutes: needed,
			}, nil
		}
	}

	return FatigueResult{Feasible: true}, nil
}

// gapBefore returns the idle time between the latest assignment ending at or
// before start and start itself, or -1 when no such assignment exists.
func (f *FatigueEvaluator) gapBefore(start time.Time, assignments []TimeWindow) time.Duration {
	var latest time.Time
	found := false
	for _, a := range assignments {
		if !a.End.After(start) && (!found || a.End.After(latest)) {
			latest = a.End
			found = true
		}
	}
	if !found {
		return -1
	}
	return start.Sub(latest)
}
