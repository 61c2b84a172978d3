/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scoring ranks contractors for a job by combining availability,
// rating, distance, and rotation signals under a versioned weights config.
package scoring

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidWeights indicates a weights config that fails validation.
	ErrInvalidWeights = errors.New("invalid weights config")
)

// TieBreaker names one criterion in the ordered tie-break chain.
type TieBreaker string

const (
	TieBreakEarliestStart     TieBreaker = "earliest_start"
	TieBreakLowestUtilization TieBreaker = "lowest_utilization"
	TieBreakShortestTravel    TieBreaker = "shortest_travel"
)

// Weights holds the relative weight of each scoring signal.
type Weights struct {
	Availability float64 `yaml:"availability"`
	Rating       float64 `yaml:"rating"`
	Distance     float64 `yaml:"distance"`
}

// Rotation configures the anti-monopoly boost for underutilized contractors.
type Rotation struct {
	Enabled                   bool    `yaml:"enabled"`
	Boost                     float64 `yaml:"boost"`
	UnderUtilizationThreshold float64 `yaml:"under_utilization_threshold"`
}

// WeightsConfig is one immutable, versioned scoring configuration. A config
// change produces a new version; a request is scored against exactly one.
type WeightsConfig struct {
	Version     string       `yaml:"version"`
	Weights     Weights      `yaml:"weights"`
	TieBreakers []TieBreaker `yaml:"tie_breakers"`
	Rotation    Rotation     `yaml:"rotation"`
}

// DefaultWeightsConfig returns the built-in scoring configuration used when
// no weights file is configured.
func DefaultWeightsConfig() WeightsConfig {
	return WeightsConfig{
		Version: "default",
		Weights: Weights{
			Availability: 0.4,
			Rating:       0.3,
			Distance:     0.3,
		},
		TieBreakers: []TieBreaker{
			TieBreakEarliestStart,
			TieBreakLowestUtilization,
			TieBreakShortestTravel,
		},
		Rotation: Rotation{
			Enabled:                   true,
			Boost:                     5,
			UnderUtilizationThreshold: 0.5,
		},
	}
}

// Validate checks the config for structural errors.
func (c WeightsConfig) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidWeights)
	}
	if c.Weights.Availability < 0 || c.Weights.Rating < 0 || c.Weights.Distance < 0 {
		return fmt.Errorf("%w: weights must be non-negative", ErrInvalidWeights)
	}
	if c.Weights.Availability+c.Weights.Rating+c.Weights.Distance <= 0 {
		return fmt.Errorf("%w: weights must not all be zero", ErrInvalidWeights)
	}
	if c.Rotation.Boost < 0 {
		return fmt.Errorf("%w: rotation boost must be non-negative", ErrInvalidWeights)
	}
	if c.Rotation.UnderUtilizationThreshold < 0 || c.Rotation.UnderUtilizationThreshold > 1 {
		return fmt.Errorf("%w: under-utilization threshold must be within [0,1]", ErrInvalidWeights)
	}
	seen := make(map[TieBreaker]bool, len(c.TieBreakers))
	for _, tb := range c.TieBreakers {
		switch tb {
		case TieBreakEarliestStart, TieBreakLowestUtilization, TieBreakShortestTravel:
		default:
			return fmt.Errorf("%w: unknown tie breaker %q", ErrInvalidWeights, tb)
		}
		if seen[tb] {
			return fmt.Errorf("%w: duplicate tie breaker %q", ErrInvalidWeights, tb)
		}
		seen[tb] = true
	}
	return nil
}

// normalized returns the weights scaled to sum to 1.
func (w Weights) normalized() Weights {
	sum := w.Availability + w.Rating + w.Distance
	if sum <= 0 {
		return w
	}
	return Weights{
		Availability: w.Availability / sum,
		Rating:       w.Rating / sum,
		Distance:     w.Distance / sum,
	}
}

// rushAdjusted applies the rush-job policy: distance weight +15% and
// availability weight +10%, rating unchanged, then renormalized.
func (w Weights) rushAdjusted() Weights {
	return Weights{
		Availability: w.Availability * 1.10,
		Rating:       w.Rating,
		Distance:     w.Distance * 1.15,
	}.normalized()
}

// WeightsProvider yields the active weights config. Each call returns an
// immutable snapshot; callers hold it for the duration of one request.
type WeightsProvider interface {
	Current() WeightsConfig
}

// StaticWeightsProvider always returns the same config.
type StaticWeightsProvider struct {
	Config WeightsConfig
}

// Current implements WeightsProvider.
func (p StaticWeightsProvider) Current() WeightsConfig {
	return p.Config
}

// FileWeightsProvider loads a weights config from a YAML file and serves it
// until Reload is called. Reload swaps the snapshot atomically; in-flight
// requests keep the version they started with.
type FileWeightsProvider struct {
	path string

	mu     sync.RWMutex
	config WeightsConfig
}

// NewFileWeightsProvider loads and validates the config at path.
func NewFileWeightsProvider(path string) (*FileWeightsProvider, error) {
	p := &FileWeightsProvider{path: path}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads the weights file. On error the previous config is kept.
func (p *FileWeightsProvider) Reload() error {
	cfg, err := LoadWeightsFile(p.path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.config = cfg
	p.mu.Unlock()
	return nil
}

// Current implements WeightsProvider.
func (p *FileWeightsProvider) Current() WeightsConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config
}

// LoadWeightsFile parses and validates a weights config YAML file.
func LoadWeightsFile(path string) (WeightsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return WeightsConfig{}, fmt.Errorf("read weights file: %w", err)
	}

	var cfg WeightsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return WeightsConfig{}, fmt.Errorf("parse weights file: %w", err)
	}
	if len(cfg.TieBreakers) == 0 {
		cfg.TieBreakers = DefaultWeightsConfig().TieBreakers
	}
	if err := cfg.Validate(); err != nil {
		return WeightsConfig{}, err
	}
	return cfg, nil
}
