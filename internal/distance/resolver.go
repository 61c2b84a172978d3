/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldlinehq/fieldline/internal/geo"
	"github.com/fieldlinehq/fieldline/internal/telemetry"
)

var (
	// ErrNoRoute indicates the routing provider found no path between the points.
	ErrNoRoute = errors.New("no route between locations")
)

// fallbackSpeedKmh is the assumed average road speed used when only a
// straight-line distance is available.
const fallbackSpeedKmh = 40.0

// Estimate is a travel estimate between two locations. Degraded marks
// estimates produced from straight-line distance instead of road routing.
type Estimate struct {
	Meters     float64 `json:"meters"`
	ETAMinutes float64 `json:"eta_minutes"`
	Degraded   bool    `json:"degraded"`
}

// Resolver resolves travel distance and ETA between two locations.
type Resolver interface {
	// Estimate returns the travel estimate from origin to dest. It degrades
	// to a haversine approximation rather than failing when the routing
	// provider is unavailable.
	Estimate(ctx context.Context, origin, dest geo.Location) (Estimate, error)
}

// RoutingConfig contains routing provider configuration.
type RoutingConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// DefaultRoutingConfig returns default routing provider configuration.
func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		Timeout: 3 * time.Second,
	}
}

// RoutingResolver resolves estimates from a road-routing HTTP API with a
// redis cache in front and a haversine fallback behind. A nil cache or an
// empty BaseURL are both tolerated; the resolver degrades accordingly.
type RoutingResolver struct {
	config RoutingConfig
	client *http.Client
	cache  *Cache
	logger zerolog.Logger
	now    func() time.Time
}

// NewRoutingResolver creates a routing-backed resolver. cache may be nil.
func NewRoutingResolver(cfg RoutingConfig, cache *Cache, logger zerolog.Logger) *RoutingResolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &RoutingResolver{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  cache,
		logger: logger.With().Str("component", "distance_resolver").Logger(),
		now:    time.Now,
	}
}

// Estimate implements Resolver.
func (r *RoutingResolver) Estimate(ctx context.Context, origin, dest geo.Location) (Estimate, error) {
	now := r.now()

	if r.cache != nil {
		if est, ok := r.cache.GetEstimate(ctx, origin, dest, now); ok {
			telemetry.DistanceCacheHitsTotal.Inc()
			return est, nil
		}
		telemetry.DistanceCacheMissesTotal.Inc()
	}

	est, err := r.route(ctx, origin, dest)
	if err != nil {
		if errors.Is(err, ErrNoRoute) {
			return Estimate{}, err
		}
		if ctx.Err() != nil {
			return Estimate{}, ctx.Err()
		}

		r.logger.Warn().Err(err).
			Float64("origin_lat", origin.Lat).
			Float64("dest_lat", dest.Lat).
			Msg("routing provider unavailable, degrading to haversine")
		telemetry.DistanceDegradedTotal.Inc()

		est = haversineEstimate(origin, dest)
	}

	if r.cache != nil {
		_ = r.cache.SetEstimate(ctx, origin, dest, now, est)
	}
	return est, nil
}

type routeResponse struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationMinutes float64 `json:"duration_minutes"`
	Code            string  `json:"code"`
}

func (r *RoutingResolver) route(ctx context.Context, origin, dest geo.Location) (Estimate, error) {
	if r.config.BaseURL == "" {
		return Estimate{}, errors.New("no routing provider configured")
	}

	q := url.Values{}
	q.Set("origin_lat", strconv.FormatFloat(origin.Lat, 'f', 6, 64))
	q.Set("origin_lon", strconv.FormatFloat(origin.Lon, 'f', 6, 64))
	q.Set("dest_lat", strconv.FormatFloat(dest.Lat, 'f', 6, 64))
	q.Set("dest_lon", strconv.FormatFloat(dest.Lon, 'f', 6, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.config.BaseURL+"/route?"+q.Encode(), nil)
	if err != nil {
		return Estimate{}, fmt.Errorf("build routing request: %w", err)
	}
	if r.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.config.APIKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Estimate{}, fmt.Errorf("routing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Estimate{}, ErrNoRoute
	}
	if resp.StatusCode != http.StatusOK {
		return Estimate{}, fmt.Errorf("routing provider returned status %d", resp.StatusCode)
	}

	var body routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Estimate{}, fmt.Errorf("decode routing response: %w", err)
	}
	if body.Code != "" && body.Code != "Ok" {
		return Estimate{}, ErrNoRoute
	}
	if body.DistanceMeters < 0 || body.DurationMinutes < 0 {
		return Estimate{}, fmt.Errorf("routing provider returned negative estimate")
	}

	return Estimate{
		Meters:     body.DistanceMeters,
		ETAMinutes: body.DurationMinutes,
	}, nil
}

// haversineEstimate produces a degraded straight-line estimate assuming a
// flat average road speed.
func haversineEstimate(origin, dest geo.Location) Estimate {
	meters := geo.HaversineMeters(origin, dest)
	return Estimate{
		Meters:     meters,
		ETAMinutes: meters / 1000.0 / fallbackSpeedKmh * 60.0,
		Degraded:   true,
	}
}

// StaticResolver returns fixed estimates keyed by destination coordinates.
// It exists for tests and for offline evaluation runs.
type StaticResolver struct {
	Estimates map[[2]float64]Estimate
	Fallback  Estimate
}

// Estimate implements Resolver.
func (s *StaticResolver) Estimate(_ context.Context, _, dest geo.Location) (Estimate, error) {
	if est, ok := s.Estimates[[2]float64{dest.Lat, dest.Lon}]; ok {
		return est, nil
	}
	return s.Fallback, nil
}
