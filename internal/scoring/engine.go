/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scoring

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldlinehq/fieldline/internal/schedule"
)

var (
	// ErrInvalidRating indicates a rating outside [0,100].
	ErrInvalidRating = errors.New("rating must be within [0,100]")
)

// maxScoringETAMinutes is the ETA at which the distance score bottoms out.
const maxScoringETAMinutes = 120.0

// degradedDistanceFactor discounts the distance score when the estimate came
// from the straight-line fallback rather than road routing.
const degradedDistanceFactor = 0.85

// ScoreBreakdown records each signal's contribution, all on a 0-100 scale,
// and the weighted final score.
type ScoreBreakdown struct {
	Availability float64 `json:"availability"`
	Rating       float64 `json:"rating"`
	Distance     float64 `json:"distance"`
	Rotation     float64 `json:"rotation"`
	FinalScore   float64 `json:"final_score"`
}

// ScoreInput carries one contractor's signals for one job.
type ScoreInput struct {
	Rating        float64
	FreeWindows   []schedule.TimeWindow
	ServiceWindow schedule.TimeWindow

	// ETAMinutes is the travel estimate for the next leg to the job site.
	// Degraded marks a straight-line approximation.
	ETAMinutes float64
	Degraded   bool

	// Utilization is the contractor's same-day scheduled fraction, 0 to 1.
	Utilization float64

	Rush bool
}

// Scorer computes a score breakdown for one contractor.
type Scorer interface {
	Score(in ScoreInput, cfg WeightsConfig) (ScoreBreakdown, error)
}

// Engine is the default Scorer.
type Engine struct {
	logger zerolog.Logger
}

// NewEngine creates a scoring engine.
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{
		logger: logger.With().Str("component", "scoring_engine").Logger(),
	}
}

// Score implements Scorer. Weights come from the config snapshot the caller
// loaded at the start of the request; a rush job shifts weight toward
// distance and availability before applying them.
func (e *Engine) Score(in ScoreInput, cfg WeightsConfig) (ScoreBreakdown, error) {
	if in.Rating < 0 || in.Rating > 100 {
		return ScoreBreakdown{}, fmt.Errorf("%w: got %.1f", ErrInvalidRating, in.Rating)
	}
	if in.ETAMinutes < 0 {
		return ScoreBreakdown{}, fmt.Errorf("eta must be non-negative, got %.1f", in.ETAMinutes)
	}

	weights := cfg.Weights.normalized()
	if in.Rush {
		weights = cfg.Weights.rushAdjusted()
	}

	breakdown := ScoreBreakdown{
		Availability: availabilityScore(in.FreeWindows, in.ServiceWindow),
		Rating:       in.Rating,
		Distance:     distanceScore(in.ETAMinutes, in.Degraded),
	}

	if cfg.Rotation.Enabled && in.Utilization < cfg.Rotation.UnderUtilizationThreshold {
		breakdown.Rotation = cfg.Rotation.Boost
	}

	breakdown.FinalScore = weights.Availability*breakdown.Availability +
		weights.Rating*breakdown.Rating +
		weights.Distance*breakdown.Distance +
		breakdown.Rotation

	e.logger.Debug().
		Float64("availability", breakdown.Availability).
		Float64("rating", breakdown.Rating).
		Float64("distance", breakdown.Distance).
		Float64("rotation", breakdown.Rotation).
		Float64("final", breakdown.FinalScore).
		Bool("rush", in.Rush).
		Msg("scored contractor")

	return breakdown, nil
}

// availabilityScore maps total free time within the service window to 0-100.
func availabilityScore(freeWindows []schedule.TimeWindow, serviceWindow schedule.TimeWindow) float64 {
	total := serviceWindow.Duration()
	if total <= 0 {
		return 0
	}

	var free time.Duration
	for _, w := range freeWindows {
		free += w.Duration()
	}

	score := float64(free) / float64(total) * 100.0
	return math.Min(100, math.Max(0, score))
}

// distanceScore maps the next-leg ETA to 0-100, linearly decaying to zero at
// maxScoringETAMinutes. Degraded estimates are discounted so haversine-only
// candidates rank below equally distant candidates with refined estimates.
func distanceScore(etaMinutes float64, degraded bool) float64 {
	score := (1.0 - math.Min(etaMinutes, maxScoringETAMinutes)/maxScoringETAMinutes) * 100.0
	if degraded {
		score *= degradedDistanceFactor
	}
	return score
}

// RankSignals carries the per-contractor values the tie-break chain inspects.
// A zero EarliestStart means the contractor produced no slots; it sorts after
// any contractor with a concrete start.
type RankSignals struct {
	FinalScore      float64
	EarliestStart   time.Time
	Utilization     float64
	TravelMinutes   float64
}

// CompareRank orders two candidates: higher final score first, then the
// configured tie-break chain, first decisive criterion wins. Returns a
// negative value when a ranks before b.
func CompareRank(a, b RankSignals, tieBreakers []TieBreaker) int {
	if a.FinalScore != b.FinalScore {
		if a.FinalScore > b.FinalScore {
			return -1
		}
		return 1
	}

	for _, tb := range tieBreakers {
		switch tb {
		case TieBreakEarliestStart:
			if c := compareStarts(a.EarliestStart, b.EarliestStart); c != 0 {
				return c
			}
		case TieBreakLowestUtilization:
			if a.Utilization != b.Utilization {
				if a.Utilization < b.Utilization {
					return -1
				}
				return 1
			}
		case TieBreakShortestTravel:
			if a.TravelMinutes != b.TravelMinutes {
				if a.TravelMinutes < b.TravelMinutes {
					return -1
				}
				return 1
			}
		}
	}
	return 0
}

func compareStarts(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	default:
		return 0
	}
}
