/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package recommend fans a recommendation request out over candidate
// contractors, evaluates each one through the scheduling and scoring
// pipeline, and returns a deterministically ranked list.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldlinehq/fieldline/internal/distance"
	"github.com/fieldlinehq/fieldline/internal/geo"
	"github.com/fieldlinehq/fieldline/internal/models"
	"github.com/fieldlinehq/fieldline/internal/schedule"
	"github.com/fieldlinehq/fieldline/internal/scoring"
	"github.com/fieldlinehq/fieldline/internal/telemetry"
)

var (
	// ErrNoCandidates indicates an empty candidate list was supplied.
	ErrNoCandidates = errors.New("no candidate contractors supplied")
)

// DefaultWorkers bounds parallel per-contractor evaluations so a large
// candidate list cannot overwhelm the routing provider.
const DefaultWorkers = 8

// DefaultMaxResults caps the ranked list length.
const DefaultMaxResults = 10

// Candidate is one contractor under evaluation, with its existing
// assignments already loaded as UTC windows.
type Candidate struct {
	Contractor  models.Contractor
	Calendar    *models.ContractorCalendar
	Assignments []schedule.TimeWindow

	// PrevJobETAMinutes is the travel estimate from the contractor's last
	// scheduled job to the new site, when a prior job exists.
	PrevJobETAMinutes *float64
}

// Request describes one recommendation request.
type Request struct {
	Job        models.Job
	Candidates []Candidate

	ServiceWindow      schedule.TimeWindow
	RegionalMultiplier float64
	MaxResults         int
}

// Recommendation is one ranked per-contractor result. SuggestedSlots is
// empty but present for contractors that have availability yet no placeable
// slot; such contractors stay in the list.
type Recommendation struct {
	ContractorID   string                   `json:"contractor_id"`
	ContractorName string                   `json:"contractor_name"`
	FinalScore     float64                  `json:"final_score"`
	Breakdown      scoring.ScoreBreakdown   `json:"breakdown"`
	SuggestedSlots []schedule.GeneratedSlot `json:"suggested_slots"`
	Rationale      string                   `json:"rationale"`
	Degraded       bool                     `json:"degraded"`

	signals scoring.RankSignals
}

// Result is the full outcome of one recommendation request.
type Result struct {
	JobID           string           `json:"job_id"`
	ConfigVersion   string           `json:"config_version"`
	Recommendations []Recommendation `json:"recommendations"`

	// Explanation is set when the list is empty, so callers can surface a
	// human-readable reason instead of a bare empty response.
	Explanation string `json:"explanation,omitempty"`
}

// Orchestrator runs the per-contractor pipeline in a bounded worker pool and
// ranks the collected results centrally. Evaluation order never affects
// output order.
type Orchestrator struct {
	slots    schedule.Slots
	scorer   scoring.Scorer
	resolver distance.Resolver
	weights  scoring.WeightsProvider
	fatigue  schedule.Fatigue
	logger   zerolog.Logger
	workers  int
}

// NewOrchestrator creates an orchestrator. workers <= 0 selects
// DefaultWorkers.
func NewOrchestrator(
	slots schedule.Slots,
	scorer scoring.Scorer,
	resolver distance.Resolver,
	weights scoring.WeightsProvider,
	fatigue schedule.Fatigue,
	workers int,
	logger zerolog.Logger,
) *Orchestrator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Orchestrator{
		slots:    slots,
		scorer:   scorer,
		resolver: resolver,
		weights:  weights,
		fatigue:  fatigue,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
		workers:  workers,
	}
}

// Recommend evaluates all candidates and returns the ranked list. The
// weights config is snapshotted once at entry and used for every candidate.
// Cancelling ctx aborts in-flight evaluations; partial results are
// discarded.
func (o *Orchestrator) Recommend(ctx context.Context, req Request) (Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "recommend.Recommend")
	defer span.End()

	start := time.Now()
	defer func() {
		telemetry.RecommendationDuration.Observe(time.Since(start).Seconds())
	}()

	if len(req.Candidates) == 0 {
		telemetry.RecommendationRequestsTotal.WithLabelValues("no_candidates").Inc()
		return Result{}, ErrNoCandidates
	}
	if req.Job.DurationMinutes <= 0 {
		telemetry.RecommendationRequestsTotal.WithLabelValues("invalid").Inc()
		return Result{}, schedule.ErrInvalidDuration
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	cfg := o.weights.Current()
	telemetry.SpanAttributes(span, map[string]any{
		"job_id":         req.Job.ID,
		"candidates":     len(req.Candidates),
		"config_version": cfg.Version,
	})

	site, err := geo.NewLocation(req.Job.SiteLat, req.Job.SiteLon)
	if err != nil {
		telemetry.RecommendationRequestsTotal.WithLabelValues("invalid").Inc()
		return Result{}, fmt.Errorf("job site: %w", err)
	}

	evaluated := make([]*Recommendation, len(req.Candidates))
	sem := make(chan struct{}, o.workers)
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	for i, cand := range req.Candidates {
		wg.Add(1)
		go func(idx int, cand Candidate) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			rec, err := o.evaluate(ctx, req, cfg, cand, site)
			if err != nil {
				if !errors.Is(err, ctx.Err()) {
					errOnce.Do(func() { firstErr = err })
				}
				return
			}
			evaluated[idx] = rec
		}(i, cand)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		telemetry.RecommendationRequestsTotal.WithLabelValues("cancelled").Inc()
		return Result{}, err
	}
	if firstErr != nil {
		telemetry.RecommendationRequestsTotal.WithLabelValues("error").Inc()
		return Result{}, firstErr
	}

	recs := make([]Recommendation, 0, len(evaluated))
	for _, rec := range evaluated {
		if rec != nil {
			recs = append(recs, *rec)
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return scoring.CompareRank(recs[i].signals, recs[j].signals, cfg.TieBreakers) < 0
	})
	if len(recs) > maxResults {
		recs = recs[:maxResults]
	}

	result := Result{
		JobID:           req.Job.ID,
		ConfigVersion:   cfg.Version,
		Recommendations: recs,
	}
	if len(recs) == 0 {
		result.Explanation = "no contractors have availability within the requested service window"
	}

	telemetry.RecommendationRequestsTotal.WithLabelValues("ok").Inc()
	o.logger.Info().
		Str("job_id", req.Job.ID).
		Int("candidates", len(req.Candidates)).
		Int("recommended", len(recs)).
		Str("config_version", cfg.Version).
		Dur("elapsed", time.Since(start)).
		Msg("recommendation request complete")

	return result, nil
}

// evaluate runs the full pipeline for one contractor. A nil result with nil
// error means the contractor is excluded (no availability).
func (o *Orchestrator) evaluate(ctx context.Context, req Request, cfg scoring.WeightsConfig, cand Candidate, site geo.Location) (*Recommendation, error) {
	telemetry.CandidatesEvaluatedTotal.Inc()

	base := geo.Location{Lat: cand.Contractor.BaseLat, Lon: cand.Contractor.BaseLon}
	est, err := o.resolver.Estimate(ctx, base, site)
	if err != nil {
		if errors.Is(err, distance.ErrNoRoute) {
			telemetry.CandidatesExcludedTotal.WithLabelValues("error").Inc()
			return nil, nil
		}
		return nil, fmt.Errorf("estimate travel for contractor %s: %w", cand.Contractor.ID, err)
	}

	availReq := schedule.AvailabilityRequest{
		WeeklyHours:     cand.Contractor.WeeklyHours,
		ServiceWindow:   req.ServiceWindow,
		Timezone:        cand.Contractor.Timezone,
		Calendar:        cand.Calendar,
		Assignments:     cand.Assignments,
		DurationMinutes: req.Job.DurationMinutes,
	}

	baseETA := est.ETAMinutes
	slotReq := schedule.SlotRequest{
		AvailabilityRequest:    availReq,
		BaseToJobETAMinutes:    &baseETA,
		PrevJobToJobETAMinutes: cand.PrevJobETAMinutes,
		ContractorRating:       cand.Contractor.Rating,
		Rush:                   req.Job.Rush,
		RegionalMultiplier:     req.RegionalMultiplier,
	}

	slots, freeWindows, err := o.slots.Generate(slotReq)
	if err != nil {
		return nil, fmt.Errorf("generate slots for contractor %s: %w", cand.Contractor.ID, err)
	}

	// Zero free windows excludes the contractor; zero slots with free
	// windows does not.
	if len(freeWindows) == 0 {
		telemetry.CandidatesExcludedTotal.WithLabelValues("no_availability").Inc()
		return nil, nil
	}
	for _, s := range slots {
		telemetry.SlotsGeneratedTotal.WithLabelValues(string(s.Type)).Inc()
	}

	utilization := o.sameDayUtilization(cand, req.ServiceWindow.Start)

	breakdown, err := o.scorer.Score(scoring.ScoreInput{
		Rating:        cand.Contractor.Rating,
		FreeWindows:   freeWindows,
		ServiceWindow: req.ServiceWindow,
		ETAMinutes:    est.ETAMinutes,
		Degraded:      est.Degraded,
		Utilization:   utilization,
		Rush:          req.Job.Rush,
	}, cfg)
	if err != nil {
		return nil, fmt.Errorf("score contractor %s: %w", cand.Contractor.ID, err)
	}

	travelMinutes := est.ETAMinutes
	if cand.PrevJobETAMinutes != nil {
		travelMinutes = math.Min(travelMinutes, *cand.PrevJobETAMinutes)
	}

	rec := &Recommendation{
		ContractorID:   cand.Contractor.ID,
		ContractorName: cand.Contractor.Name,
		FinalScore:     breakdown.FinalScore,
		Breakdown:      breakdown,
		SuggestedSlots: slots,
		Rationale:      rationale(breakdown, len(freeWindows), len(slots), est, cfg),
		Degraded:       est.Degraded,
		signals: scoring.RankSignals{
			FinalScore:    breakdown.FinalScore,
			EarliestStart: earliestStart(slots),
			Utilization:   utilization,
			TravelMinutes: travelMinutes,
		},
	}
	return rec, nil
}

// sameDayUtilization reports the fraction of a target working day already
// scheduled on the contractor-local date of the service window start.
func (o *Orchestrator) sameDayUtilization(cand Candidate, at time.Time) float64 {
	hours, err := o.fatigue.DailyHours(cand.Assignments, at, cand.Contractor.Timezone)
	if err != nil {
		return 0
	}
	return math.Min(1, hours/schedule.TargetDailyHours)
}

func earliestStart(slots []schedule.GeneratedSlot) time.Time {
	var earliest time.Time
	for _, s := range slots {
		if earliest.IsZero() || s.Window.Start.Before(earliest) {
			earliest = s.Window.Start
		}
	}
	return earliest
}

// rationale builds the human-readable explanation attached to one result.
func rationale(b scoring.ScoreBreakdown, windows, slots int, est distance.Estimate, cfg scoring.WeightsConfig) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "score %.1f: %d free window(s), rating %.0f, ~%.0f min travel", b.FinalScore, windows, b.Rating, est.ETAMinutes)
	if slots == 0 {
		sb.WriteString("; no placeable slot in the requested window")
	}
	if b.Rotation > 0 {
		fmt.Fprintf(&sb, "; rotation boost +%.0f (under %.0f%% utilization)", b.Rotation, cfg.Rotation.UnderUtilizationThreshold*100)
	}
	if est.Degraded {
		sb.WriteString("; travel estimate approximate (routing unavailable)")
	}
	return sb.String()
}
