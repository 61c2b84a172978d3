/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule implements the availability-and-slot engine: resolving
// weekly working hours into concrete windows, subtracting bookings, fatigue
// accounting, travel buffers, and candidate slot generation.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow indicates a window whose start does not precede its end.
var ErrInvalidWindow = errors.New("time window start must precede end")

// TimeWindow is an immutable half-open interval [Start, End) in UTC.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeWindow validates and constructs a window. Both instants are
// normalized to UTC.
func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	if !start.Before(end) {
		return TimeWindow{}, fmt.Errorf("%w: start=%s end=%s", ErrInvalidWindow, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return TimeWindow{Start: start.UTC(), End: end.UTC()}, nil
}

// Duration returns the window length.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Overlaps reports whether the two windows share any instant.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start.Before(other.End) && w.End.After(other.Start)
}

// Contains reports whether other lies entirely within w.
func (w TimeWindow) Contains(other TimeWindow) bool {
	return !other.Start.Before(w.Start) && !other.End.After(w.End)
}

// Clip intersects w with bounds. The second return value is false when the
// intersection is empty.
func (w TimeWindow) Clip(bounds TimeWindow) (TimeWindow, bool) {
	start := maxTime(w.Start, bounds.Start)
	end := minTime(w.End, bounds.End)
	if !start.Before(end) {
		return TimeWindow{}, false
	}
	return TimeWindow{Start: start, End: end}, true
}

// Subtract removes other from w, yielding zero, one, or two remaining
// windows ordered by start.
func (w TimeWindow) Subtract(other TimeWindow) []TimeWindow {
	if !w.Overlaps(other) {
		return []TimeWindow{w}
	}

	var out []TimeWindow
	if w.Start.Before(other.Start) {
		out = append(out, TimeWindow{Start: w.Start, End: other.Start})
	}
	if other.End.Before(w.End) {
		out = append(out, TimeWindow{Start: other.End, End: w.End})
	}
	return out
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
