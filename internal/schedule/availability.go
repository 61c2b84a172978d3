/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldlinehq/fieldline/internal/models"
)

// ErrInvalidDuration indicates a non-positive job duration, a caller
// contract violation.
var ErrInvalidDuration = errors.New("job duration must be positive")

// Availability finds free windows large enough for a job after subtracting
// existing assignments from resolved working hours.
type Availability interface {
	FreeWindows(req AvailabilityRequest) ([]TimeWindow, error)
}

// AvailabilityRequest carries everything needed for one resolution pass.
type AvailabilityRequest struct {
	WeeklyHours     []models.WeeklyWorkingHours
	ServiceWindow   TimeWindow
	Timezone        string
	Calendar        *models.ContractorCalendar
	Assignments     []TimeWindow
	DurationMinutes int
}

// AvailabilityEngine is the default Availability implementation.
type AvailabilityEngine struct {
	resolver HoursResolver
	logger   zerolog.Logger
}

// NewAvailabilityEngine creates an engine on top of an hours resolver.
func NewAvailabilityEngine(resolver HoursResolver, logger zerolog.Logger) *AvailabilityEngine {
	return &AvailabilityEngine{
		resolver: resolver,
		logger:   logger.With().Str("component", "availability_engine").Logger(),
	}
}

// FreeWindows resolves working windows, subtracts every overlapping
// assignment (splitting windows where needed), and drops remainders shorter
// than the job duration. Output is ordered by start and deterministic for
// identical input.
func (e *AvailabilityEngine) FreeWindows(req AvailabilityRequest) ([]TimeWindow, error) {
	if req.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDuration, req.DurationMinutes)
	}

	working, err := e.resolver.Resolve(req.WeeklyHours, req.ServiceWindow, req.Timezone, req.Calendar)
	if err != nil {
		return nil, fmt.Errorf("resolve working hours: %w", err)
	}

	minDuration := time.Duration(req.DurationMinutes) * time.Minute

	var free []TimeWindow
	for _, window := range working {
		remaining := []TimeWindow{window}
		for _, booked := range req.Assignments {
			var next []TimeWindow
			for _, part := range remaining {
				next = append(next, part.Subtract(booked)...)
			}
			remaining = next
		}
		for _, part := range remaining {
			if part.Duration() >= minDuration {
				free = append(free, part)
			}
		}
	}

	sort.Slice(free, func(i, j int) bool {
		return free[i].Start.Before(free[j].Start)
	})

	return free, nil
}
