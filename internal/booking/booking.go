/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package booking confirms a recommended slot as a persisted assignment,
// re-running the feasibility checks immediately before the write.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/fieldlinehq/fieldline/internal/events"
	"github.com/fieldlinehq/fieldline/internal/models"
	"github.com/fieldlinehq/fieldline/internal/schedule"
	"github.com/fieldlinehq/fieldline/internal/telemetry"
)

var (
	// ErrBookingConflict indicates a concurrent confirmation won the slot.
	// The caller should re-request recommendations.
	ErrBookingConflict = errors.New("slot already booked")

	// ErrInfeasible indicates the slot no longer passes the scheduling
	// checks, for example because fatigue limits were reached since the
	// recommendation was computed.
	ErrInfeasible = errors.New("slot no longer feasible")
)

// Publisher is the subset of the event bus the booking service needs.
type Publisher interface {
	Publish(eventType events.EventType, payload events.Payload)
}

// Service confirms bookings with optimistic concurrency: recommendations
// are never trusted, the feasibility check re-runs inside the transaction
// and the first writer for a contractor/start pair wins.
type Service struct {
	db           *gorm.DB
	availability schedule.Availability
	fatigue      schedule.Fatigue
	bus          Publisher
	logger       zerolog.Logger
}

// NewService creates a booking service.
func NewService(db *gorm.DB, availability schedule.Availability, fatigue schedule.Fatigue, bus Publisher, logger zerolog.Logger) *Service {
	return &Service{
		db:           db,
		availability: availability,
		fatigue:      fatigue,
		bus:          bus,
		logger:       logger.With().Str("component", "booking").Logger(),
	}
}

// ConfirmRequest identifies the slot being confirmed.
type ConfirmRequest struct {
	Contractor models.Contractor
	Job        models.Job
	Slot       schedule.TimeWindow
	Calendar   *models.ContractorCalendar
}

// Confirm persists the assignment after re-validating it against the
// contractor's current schedule. Returns ErrBookingConflict when another
// transaction booked an overlapping slot first.
func (s *Service) Confirm(ctx context.Context, req ConfirmRequest) (*models.Assignment, error) {
	if req.Slot.Start.IsZero() || !req.Slot.Start.Before(req.Slot.End) {
		return nil, schedule.ErrInvalidWindow
	}

	assignment := &models.Assignment{
		ID:           uuid.NewString(),
		ContractorID: req.Contractor.ID,
		JobID:        req.Job.ID,
		StartsAt:     req.Slot.Start.UTC(),
		EndsAt:       req.Slot.End.UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-check against the schedule as of this transaction, not the
		// one the recommendation saw.
		var existing []models.Assignment
		if err := tx.
			Where("contractor_id = ? AND starts_at < ? AND ends_at > ?",
				req.Contractor.ID, req.Slot.End, req.Slot.Start).
			Find(&existing).Error; err != nil {
			return fmt.Errorf("load overlapping assignments: %w", err)
		}
		if len(existing) > 0 {
			return ErrBookingConflict
		}

		dayStart := req.Slot.Start.UTC().Add(-24 * time.Hour)
		dayEnd := req.Slot.End.UTC().Add(24 * time.Hour)
		var sameDay []models.Assignment
		if err := tx.
			Where("contractor_id = ? AND starts_at < ? AND ends_at > ?",
				req.Contractor.ID, dayEnd, dayStart).
			Order("starts_at").
			Find(&sameDay).Error; err != nil {
			return fmt.Errorf("load surrounding assignments: %w", err)
		}

		windows := make([]schedule.TimeWindow, 0, len(sameDay))
		for _, a := range sameDay {
			windows = append(windows, schedule.TimeWindow{Start: a.StartsAt.UTC(), End: a.EndsAt.UTC()})
		}

		result, err := s.fatigue.CheckFeasibility(req.Slot, windows, req.Job.DurationMinutes, req.Contractor.Timezone, req.Job.Rush, 0)
		if err != nil {
			return fmt.Errorf("fatigue check: %w", err)
		}
		if !result.Feasible {
			return fmt.Errorf("%w: %s", ErrInfeasible, result.Reason)
		}

		free, err := s.availability.FreeWindows(schedule.AvailabilityRequest{
			WeeklyHours:     req.Contractor.WeeklyHours,
			ServiceWindow:   req.Slot,
			Timezone:        req.Contractor.Timezone,
			Calendar:        req.Calendar,
			Assignments:     windows,
			DurationMinutes: req.Job.DurationMinutes,
		})
		if err != nil {
			return fmt.Errorf("availability check: %w", err)
		}
		if !windowsContain(free, req.Slot) {
			return fmt.Errorf("%w: slot is outside current availability", ErrInfeasible)
		}

		if err := tx.Create(assignment).Error; err != nil {
			// The unique index on (contractor_id, starts_at) catches a
			// racing writer that committed between our read and write.
			if isUniqueViolation(err) {
				return ErrBookingConflict
			}
			return fmt.Errorf("create assignment: %w", err)
		}

		return tx.Model(&models.Job{}).
			Where("id = ?", req.Job.ID).
			Update("status", models.JobStatusAssigned).Error
	})
	if err != nil {
		if errors.Is(err, ErrBookingConflict) {
			telemetry.BookingConflictsTotal.Inc()
			s.bus.Publish(events.EventBookingConflict, events.Payload{
				"contractor_id": req.Contractor.ID,
				"job_id":        req.Job.ID,
				"starts_at":     req.Slot.Start,
			})
		}
		return nil, err
	}

	telemetry.BookingsConfirmedTotal.Inc()
	s.bus.Publish(events.EventBookingConfirmed, events.Payload{
		"assignment_id": assignment.ID,
		"contractor_id": assignment.ContractorID,
		"job_id":        assignment.JobID,
		"starts_at":     assignment.StartsAt,
		"ends_at":       assignment.EndsAt,
	})

	s.logger.Info().
		Str("assignment_id", assignment.ID).
		Str("contractor_id", assignment.ContractorID).
		Str("job_id", assignment.JobID).
		Time("starts_at", assignment.StartsAt).
		Msg("booking confirmed")

	return assignment, nil
}

// windowsContain reports whether any free window fully contains the slot.
func windowsContain(free []schedule.TimeWindow, slot schedule.TimeWindow) bool {
	for _, w := range free {
		if w.Contains(slot) {
			return true
		}
	}
	return false
}

// isUniqueViolation matches duplicate-key errors across the supported
// database backends.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
