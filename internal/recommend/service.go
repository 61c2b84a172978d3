/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package recommend

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fieldlinehq/fieldline/internal/events"
	"github.com/fieldlinehq/fieldline/internal/models"
	"github.com/fieldlinehq/fieldline/internal/schedule"
	"github.com/fieldlinehq/fieldline/internal/store"
)

// Publisher is the subset of the event bus the service needs.
type Publisher interface {
	Publish(eventType events.EventType, payload events.Payload)
}

// Service loads candidates from storage, runs the orchestrator, persists an
// audit snapshot of the ranked results, and announces them on the bus.
type Service struct {
	store        *store.Store
	orchestrator *Orchestrator
	bus          Publisher
	logger       zerolog.Logger

	regionalMultiplier float64
	maxResults         int
}

// NewService creates a recommendation service.
func NewService(st *store.Store, orch *Orchestrator, bus Publisher, regionalMultiplier float64, maxResults int, logger zerolog.Logger) *Service {
	return &Service{
		store:              st,
		orchestrator:       orch,
		bus:                bus,
		logger:             logger.With().Str("component", "recommend_service").Logger(),
		regionalMultiplier: regionalMultiplier,
		maxResults:         maxResults,
	}
}

// RecommendForJob produces the ranked contractor list for a stored job.
func (s *Service) RecommendForJob(ctx context.Context, jobID string) (Result, error) {
	job, err := s.store.JobByID(ctx, jobID)
	if err != nil {
		return Result{}, err
	}

	serviceWindow, err := schedule.NewTimeWindow(job.WindowStart.UTC(), job.WindowEnd.UTC())
	if err != nil {
		return Result{}, fmt.Errorf("job %s service window: %w", jobID, err)
	}

	contractors, err := s.store.ActiveContractors(ctx)
	if err != nil {
		return Result{}, err
	}

	candidates := make([]Candidate, 0, len(contractors))
	for _, contractor := range contractors {
		windows, err := s.store.AssignmentWindows(ctx, contractor.ID, serviceWindow.Start.AddDate(0, 0, -1), serviceWindow.End.AddDate(0, 0, 1))
		if err != nil {
			return Result{}, err
		}
		candidates = append(candidates, Candidate{
			Contractor:  contractor,
			Calendar:    CalendarFor(contractor),
			Assignments: windows,
		})
	}

	result, err := s.orchestrator.Recommend(ctx, Request{
		Job:                *job,
		Candidates:         candidates,
		ServiceWindow:      serviceWindow,
		RegionalMultiplier: s.regionalMultiplier,
		MaxResults:         s.maxResults,
	})
	if err != nil {
		return Result{}, err
	}

	if err := s.persistAudit(ctx, result); err != nil {
		// Audit failure does not invalidate the computed recommendations.
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to persist recommendation audit")
	}

	s.bus.Publish(events.EventRecommendationReady, events.Payload{
		"job_id":         result.JobID,
		"config_version": result.ConfigVersion,
		"count":          len(result.Recommendations),
	})

	return result, nil
}

func (s *Service) persistAudit(ctx context.Context, result Result) error {
	entries := make([]map[string]any, 0, len(result.Recommendations))
	for _, rec := range result.Recommendations {
		entries = append(entries, map[string]any{
			"contractor_id": rec.ContractorID,
			"final_score":   rec.FinalScore,
			"breakdown":     rec.Breakdown,
			"slots":         rec.SuggestedSlots,
			"rationale":     rec.Rationale,
			"degraded":      rec.Degraded,
		})
	}

	return s.store.SaveAudit(ctx, &models.RecommendationAudit{
		ID:            uuid.NewString(),
		JobID:         result.JobID,
		ConfigVersion: result.ConfigVersion,
		Results: map[string]any{
			"recommendations": entries,
			"explanation":     result.Explanation,
		},
	})
}

// CalendarFor assembles the in-memory calendar from a contractor's stored
// exceptions.
func CalendarFor(contractor models.Contractor) *models.ContractorCalendar {
	if len(contractor.Exceptions) == 0 {
		return nil
	}

	cal := &models.ContractorCalendar{
		Holidays: make(map[string]struct{}),
	}
	for _, exc := range contractor.Exceptions {
		if exc.Type == models.ExceptionHoliday {
			cal.Holidays[exc.Date] = struct{}{}
		}
		cal.Exceptions = append(cal.Exceptions, exc)
	}
	return cal
}
