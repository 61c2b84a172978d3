package distance

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fieldlinehq/fieldline/internal/geo"
)

var (
	depot = geo.Location{Lat: 40.7128, Lon: -74.0060}
	site  = geo.Location{Lat: 40.7580, Lon: -73.9855}
)

func TestEstimateFromRoutingProvider(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/route" {
			t.Errorf("path = %q, want /route", r.URL.Path)
		}
		if r.URL.Query().Get("origin_lat") == "" {
			t.Error("missing origin_lat query parameter")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"distance_meters": 8200, "duration_minutes": 22.5, "code": "Ok"}`))
	}))
	defer server.Close()

	resolver := NewRoutingResolver(RoutingConfig{BaseURL: server.URL, APIKey: "test-key"}, nil, zerolog.Nop())

	est, err := resolver.Estimate(context.Background(), depot, site)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if est.Meters != 8200 || est.ETAMinutes != 22.5 {
		t.Fatalf("estimate = %+v", est)
	}
	if est.Degraded {
		t.Fatal("routed estimate must not be degraded")
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("authorization = %q", gotAuth)
	}
}

func TestEstimateNoRouteIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	resolver := NewRoutingResolver(RoutingConfig{BaseURL: server.URL}, nil, zerolog.Nop())

	if _, err := resolver.Estimate(context.Background(), depot, site); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("err = %v, want ErrNoRoute", err)
	}
}

func TestEstimateNotOkCodeIsNoRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code": "NoSegment"}`))
	}))
	defer server.Close()

	resolver := NewRoutingResolver(RoutingConfig{BaseURL: server.URL}, nil, zerolog.Nop())

	if _, err := resolver.Estimate(context.Background(), depot, site); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("err = %v, want ErrNoRoute", err)
	}
}

func TestEstimateDegradesToHaversine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	resolver := NewRoutingResolver(RoutingConfig{BaseURL: server.URL}, nil, zerolog.Nop())

	est, err := resolver.Estimate(context.Background(), depot, site)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if !est.Degraded {
		t.Fatal("fallback estimate must be marked degraded")
	}

	wantMeters := geo.HaversineMeters(depot, site)
	if math.Abs(est.Meters-wantMeters) > 1 {
		t.Fatalf("meters = %.0f, want %.0f", est.Meters, wantMeters)
	}
	wantETA := wantMeters / 1000.0 / fallbackSpeedKmh * 60.0
	if math.Abs(est.ETAMinutes-wantETA) > 0.01 {
		t.Fatalf("eta = %.2f, want %.2f", est.ETAMinutes, wantETA)
	}
}

func TestEstimateNoProviderConfigured(t *testing.T) {
	resolver := NewRoutingResolver(RoutingConfig{}, nil, zerolog.Nop())

	est, err := resolver.Estimate(context.Background(), depot, site)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if !est.Degraded {
		t.Fatal("estimate without a provider must be degraded")
	}
}

func TestEstimateCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"distance_meters": 1, "duration_minutes": 1}`))
	}))
	defer server.Close()

	resolver := NewRoutingResolver(RoutingConfig{BaseURL: server.URL}, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := resolver.Estimate(ctx, depot, site); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestStaticResolver(t *testing.T) {
	resolver := &StaticResolver{
		Estimates: map[[2]float64]Estimate{
			{site.Lat, site.Lon}: {Meters: 5000, ETAMinutes: 12},
		},
		Fallback: Estimate{Meters: 1000, ETAMinutes: 3, Degraded: true},
	}

	est, err := resolver.Estimate(context.Background(), depot, site)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if est.ETAMinutes != 12 {
		t.Fatalf("eta = %v, want 12", est.ETAMinutes)
	}

	est, err = resolver.Estimate(context.Background(), depot, geo.Location{Lat: 1, Lon: 1})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if !est.Degraded || est.ETAMinutes != 3 {
		t.Fatalf("fallback = %+v", est)
	}
}
