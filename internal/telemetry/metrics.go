/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry provides Prometheus metrics and OpenTelemetry tracing
// for the recommendation pipeline.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RecommendationRequestsTotal counts recommendation requests by outcome.
	RecommendationRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldline_recommendation_requests_total",
		Help: "Total recommendation requests by outcome",
	}, []string{"outcome"})

	// RecommendationDuration tracks end-to-end recommendation latency.
	RecommendationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fieldline_recommendation_duration_seconds",
		Help:    "End-to-end recommendation request duration",
		Buckets: prometheus.DefBuckets,
	})

	// CandidatesEvaluatedTotal counts contractors evaluated across requests.
	CandidatesEvaluatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldline_candidates_evaluated_total",
		Help: "Total contractor candidates evaluated",
	})

	// CandidatesExcludedTotal counts contractors dropped during evaluation,
	// labeled by reason (no_availability, fatigue, error).
	CandidatesExcludedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldline_candidates_excluded_total",
		Help: "Contractor candidates excluded from recommendations by reason",
	}, []string{"reason"})

	// SlotsGeneratedTotal counts generated slots by type.
	SlotsGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldline_slots_generated_total",
		Help: "Generated booking slots by slot type",
	}, []string{"type"})

	// DistanceCacheHitsTotal counts estimate cache hits.
	DistanceCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldline_distance_cache_hits_total",
		Help: "Travel estimate cache hits",
	})

	// DistanceCacheMissesTotal counts estimate cache misses.
	DistanceCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldline_distance_cache_misses_total",
		Help: "Travel estimate cache misses",
	})

	// DistanceDegradedTotal counts estimates served from the haversine
	// fallback because the routing provider was unavailable.
	DistanceDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldline_distance_degraded_total",
		Help: "Travel estimates degraded to straight-line approximation",
	})

	// BookingsConfirmedTotal counts confirmed bookings.
	BookingsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldline_bookings_confirmed_total",
		Help: "Total confirmed bookings",
	})

	// BookingConflictsTotal counts bookings rejected due to a concurrent
	// confirmation of the same slot.
	BookingConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldline_booking_conflicts_total",
		Help: "Bookings rejected due to slot conflicts",
	})

	// DatabaseQueryDuration tracks database operation latency by operation
	// and table.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fieldline_database_query_duration_seconds",
		Help:    "Database operation duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts database errors by operation.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldline_database_errors_total",
		Help: "Database errors by operation and table",
	}, []string{"operation", "table"})

	// DatabaseConnectionsActive tracks the open connection count.
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fieldline_database_connections_active",
		Help: "Open database connections",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
