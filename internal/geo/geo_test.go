package geo

import (
	"errors"
	"math"
	"testing"
)

func TestNewLocationValidation(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr error
	}{
		{name: "valid", lat: 40.7128, lon: -74.0060},
		{name: "boundary north pole", lat: 90, lon: 0},
		{name: "boundary antimeridian", lat: 0, lon: -180},
		{name: "latitude too high", lat: 90.1, lon: 0, wantErr: ErrInvalidLatitude},
		{name: "latitude too low", lat: -91, lon: 0, wantErr: ErrInvalidLatitude},
		{name: "longitude too high", lat: 0, lon: 180.5, wantErr: ErrInvalidLongitude},
		{name: "latitude NaN", lat: math.NaN(), lon: 0, wantErr: ErrInvalidLatitude},
		{name: "longitude NaN", lat: 0, lon: math.NaN(), wantErr: ErrInvalidLongitude},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := NewLocation(tt.lat, tt.lon)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if loc.Lat != tt.lat || loc.Lon != tt.lon {
				t.Fatalf("location = %+v, want lat=%v lon=%v", loc, tt.lat, tt.lon)
			}
		})
	}
}

func TestHaversineMeters(t *testing.T) {
	newYork := Location{Lat: 40.7128, Lon: -74.0060}
	losAngeles := Location{Lat: 34.0522, Lon: -118.2437}

	tests := []struct {
		name      string
		a, b      Location
		want      float64
		tolerance float64
	}{
		{name: "same point", a: newYork, b: newYork, want: 0, tolerance: 0.01},
		{name: "new york to los angeles", a: newYork, b: losAngeles, want: 3_936_000, tolerance: 10_000},
		{name: "one degree of latitude", a: Location{Lat: 0, Lon: 0}, b: Location{Lat: 1, Lon: 0}, want: 111_195, tolerance: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineMeters(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Fatalf("distance = %.0f, want %.0f ± %.0f", got, tt.want, tt.tolerance)
			}
			if back := HaversineMeters(tt.b, tt.a); math.Abs(back-got) > 0.01 {
				t.Fatalf("asymmetric distance: %.2f vs %.2f", got, back)
			}
		})
	}
}
