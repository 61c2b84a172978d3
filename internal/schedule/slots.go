/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// SlotType labels the intent behind a generated slot.
type SlotType string

const (
	SlotEarliest          SlotType = "earliest"
	SlotLowestTravel      SlotType = "lowest_travel"
	SlotHighestConfidence SlotType = "highest_confidence"
)

// GeneratedSlot is one concrete, feasible appointment proposal.
type GeneratedSlot struct {
	Window     TimeWindow `json:"window"`
	Type       SlotType   `json:"type"`
	Confidence int        `json:"confidence"` // 0-100
}

// SlotRequest carries the inputs for one contractor's slot generation pass.
type SlotRequest struct {
	AvailabilityRequest

	// Travel estimates in minutes. Nil means the leg is unknown: the base
	// leg then contributes no buffer and the lowest-travel slot is skipped.
	BaseToJobETAMinutes    *float64
	PrevJobToJobETAMinutes *float64

	ContractorRating   float64 // 0-100
	Rush               bool
	RegionalMultiplier float64 // defaults to 1.0
	BreakMinutes       int     // defaults to DefaultBreakMinutes
}

// Slots produces up to three typed candidate slots for one contractor,
// along with the free windows they were placed in. Free windows without
// slots is a meaningful combination: the contractor is available but no
// aligned placement fits.
type Slots interface {
	Generate(req SlotRequest) ([]GeneratedSlot, []TimeWindow, error)
}

// SlotGenerator composes availability, travel buffers, and fatigue checks.
type SlotGenerator struct {
	availability Availability
	fatigue      Fatigue
	policy       BufferPolicy
	logger       zerolog.Logger
}

// NewSlotGenerator creates the default slot generator.
func NewSlotGenerator(availability Availability, fatigue Fatigue, policy BufferPolicy, logger zerolog.Logger) *SlotGenerator {
	return &SlotGenerator{
		availability: availability,
		fatigue:      fatigue,
		policy:       policy,
		logger:       logger.With().Str("component", "slot_generator").Logger(),
	}
}

// Generate returns zero to three slots, one per type, each feasible, inside
// working hours, fatigue-clean, and quarter-hour aligned. No available
// windows is a normal empty result, not an error. Identical input always
// yields identical output.
func (g *SlotGenerator) Generate(req SlotRequest) ([]GeneratedSlot, []TimeWindow, error) {
	mult := req.RegionalMultiplier
	if mult == 0 {
		mult = 1.0
	}

	windows, err := g.availability.FreeWindows(req.AvailabilityRequest)
	if err != nil {
		return nil, nil, err
	}
	if len(windows) == 0 {
		return nil, nil, nil
	}

	baseBuffer := 0
	if req.BaseToJobETAMinutes != nil {
		baseBuffer, err = g.policy.Buffer(*req.BaseToJobETAMinutes, mult)
		if err != nil {
			return nil, nil, fmt.Errorf("base leg buffer: %w", err)
		}
	}

	var slots []GeneratedSlot

	if slot, ok, err := g.place(req, windows[0], baseBuffer, SlotEarliest); err != nil {
		return nil, nil, err
	} else if ok {
		slots = append(slots, slot)
	}

	if req.PrevJobToJobETAMinutes != nil {
		jobBuffer, err := g.policy.Buffer(*req.PrevJobToJobETAMinutes, mult)
		if err != nil {
			return nil, nil, fmt.Errorf("job leg buffer: %w", err)
		}
		if slot, ok, err := g.place(req, windows[0], jobBuffer, SlotLowestTravel); err != nil {
			return nil, nil, err
		} else if ok {
			slots = append(slots, slot)
		}
	}

	best := g.mostConfidentWindow(windows, req)
	if slot, ok, err := g.place(req, best, baseBuffer, SlotHighestConfidence); err != nil {
		return nil, nil, err
	} else if ok {
		slots = append(slots, slot)
	}

	return slots, windows, nil
}

// place positions the job inside window after the travel buffer, rounds the
// start up to the next quarter hour, and runs the fatigue check. When the
// rounded placement overruns the window it falls back to the latest aligned
// start that still ends inside the window, provided that start does not eat
// into the buffer; otherwise the slot type is omitted.
func (g *SlotGenerator) place(req SlotRequest, window TimeWindow, bufferMinutes int, slotType SlotType) (GeneratedSlot, bool, error) {
	duration := time.Duration(req.DurationMinutes) * time.Minute

	lowerBound := maxTime(window.Start, req.ServiceWindow.Start).Add(time.Duration(bufferMinutes) * time.Minute)
	start := roundUpQuarter(lowerBound)

	if start.Add(duration).After(window.End) {
		fallback := roundDownQuarter(window.End.Add(-duration))
		if fallback.Before(lowerBound) {
			return GeneratedSlot{}, false, nil
		}
		start = fallback
	}

	candidate := TimeWindow{Start: start, End: start.Add(duration)}
	if !window.Contains(candidate) {
		return GeneratedSlot{}, false, nil
	}

	result, err := g.fatigue.CheckFeasibility(candidate, req.Assignments, req.DurationMinutes, req.Timezone, req.Rush, req.BreakMinutes)
	if err != nil {
		return GeneratedSlot{}, false, err
	}
	if !result.Feasible {
		g.logger.Debug().Str("slot_type", string(slotType)).Str("reason", result.Reason).Msg("slot dropped by fatigue check")
		return GeneratedSlot{}, false, nil
	}

	return GeneratedSlot{
		Window:     candidate,
		Type:       slotType,
		Confidence: Confidence(window, req.DurationMinutes, req.ContractorRating),
	}, true, nil
}

// mostConfidentWindow picks the window maximizing the confidence score.
// Strict comparison keeps the earliest window on ties.
func (g *SlotGenerator) mostConfidentWindow(windows []TimeWindow, req SlotRequest) TimeWindow {
	best := windows[0]
	bestScore := Confidence(best, req.DurationMinutes, req.ContractorRating)
	for _, w := range windows[1:] {
		if score := Confidence(w, req.DurationMinutes, req.ContractorRating); score > bestScore {
			best = w
			bestScore = score
		}
	}
	return best
}

// Confidence scores a window between 0 and 100 from contractor rating and
// the slack left once the job is placed. Four hours of slack saturates the
// slack component.
func Confidence(window TimeWindow, durationMinutes int, rating float64) int {
	slack := window.Duration().Minutes() - float64(durationMinutes)
	if slack < 0 {
		slack = 0
	}
	slackScore := slack / 240 * 100
	if slackScore > 100 {
		slackScore = 100
	}
	if rating < 0 {
		rating = 0
	}
	if rating > 100 {
		rating = 100
	}

	score := int(0.6*rating + 0.4*slackScore + 0.5)
	if score > 100 {
		score = 100
	}
	return score
}

// roundUpQuarter aligns t to the next :00/:15/:30/:45 boundary, leaving
// already-aligned instants untouched.
func roundUpQuarter(t time.Time) time.Time {
	if truncated := t.Truncate(time.Minute); truncated.Equal(t) {
		t = truncated
	} else {
		t = truncated.Add(time.Minute)
	}
	if rem := t.Minute() % 15; rem != 0 {
		t = t.Add(time.Duration(15-rem) * time.Minute)
	}
	return t
}

// roundDownQuarter aligns t to the previous quarter-hour boundary.
func roundDownQuarter(t time.Time) time.Time {
	t = t.Truncate(time.Minute)
	return t.Add(-time.Duration(t.Minute()%15) * time.Minute)
}
