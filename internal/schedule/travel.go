/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidETA indicates a negative travel estimate.
	ErrInvalidETA = errors.New("eta minutes must not be negative")

	// ErrInvalidMultiplier indicates a non-positive regional multiplier.
	ErrInvalidMultiplier = errors.New("regional multiplier must be positive")
)

// BufferPolicy bounds the travel buffer inserted between consecutive legs.
// Values come from configuration so regions can override them without a code
// change.
type BufferPolicy struct {
	MinMinutes int     `json:"min_minutes"`
	Multiplier float64 `json:"multiplier"`
	MaxMinutes int     `json:"max_minutes"`
}

// DefaultBufferPolicy returns the stock policy: a quarter of the ETA,
// clamped to [10, 45] minutes.
func DefaultBufferPolicy() BufferPolicy {
	return BufferPolicy{MinMinutes: 10, Multiplier: 0.25, MaxMinutes: 45}
}

// Buffer maps an ETA to the required idle minutes before the next leg,
// rounded to the nearest whole minute. A zero ETA still yields the floor.
// The same formula serves base-to-first-job, job-to-job, and last-job-to-base
// legs; the caller chooses which leg it is pricing.
func (p BufferPolicy) Buffer(etaMinutes float64, regionalMultiplier float64) (int, error) {
	if etaMinutes < 0 {
		return 0, fmt.Errorf("%w: %.1f", ErrInvalidETA, etaMinutes)
	}
	if regionalMultiplier <= 0 {
		return 0, fmt.Errorf("%w: %.2f", ErrInvalidMultiplier, regionalMultiplier)
	}

	raw := etaMinutes * p.Multiplier * regionalMultiplier
	minutes := int(math.Round(raw))
	if minutes < p.MinMinutes {
		return p.MinMinutes, nil
	}
	if minutes > p.MaxMinutes {
		return p.MaxMinutes, nil
	}
	return minutes, nil
}
