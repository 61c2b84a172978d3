/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package geo provides the location value type and coarse great-circle math.
package geo

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidLatitude indicates a latitude outside [-90, 90].
	ErrInvalidLatitude = errors.New("latitude out of range")

	// ErrInvalidLongitude indicates a longitude outside [-180, 180].
	ErrInvalidLongitude = errors.New("longitude out of range")
)

// earthRadiusMeters is the mean Earth radius used for haversine distances.
const earthRadiusMeters = 6371000.0

// Location is a validated geographic point with optional address fields.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// NewLocation validates coordinate ranges at construction.
func NewLocation(lat, lon float64) (Location, error) {
	if lat < -90 || lat > 90 || math.IsNaN(lat) {
		return Location{}, fmt.Errorf("%w: %.6f", ErrInvalidLatitude, lat)
	}
	if lon < -180 || lon > 180 || math.IsNaN(lon) {
		return Location{}, fmt.Errorf("%w: %.6f", ErrInvalidLongitude, lon)
	}
	return Location{Lat: lat, Lon: lon}, nil
}

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b Location) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
