/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/fieldlinehq/fieldline/internal/booking"
	"github.com/fieldlinehq/fieldline/internal/db"
	"github.com/fieldlinehq/fieldline/internal/distance"
	"github.com/fieldlinehq/fieldline/internal/eventbus"
	"github.com/fieldlinehq/fieldline/internal/recommend"
	"github.com/fieldlinehq/fieldline/internal/schedule"
	"github.com/fieldlinehq/fieldline/internal/scoring"
	"github.com/fieldlinehq/fieldline/internal/store"
	"github.com/fieldlinehq/fieldline/internal/telemetry"
	"github.com/fieldlinehq/fieldline/internal/version"
)

// runtime wires the full pipeline for one command invocation.
type runtime struct {
	db       *gorm.DB
	store    *store.Store
	bus      *eventbus.RedisBus
	cache    *distance.Cache
	tracer   *telemetry.TracerProvider
	service  *recommend.Service
	booking  *booking.Service
	exporter *schedule.ExportService
	provider scoring.WeightsProvider
}

// newRuntime builds every component from the loaded config.
func newRuntime(ctx context.Context) (*runtime, error) {
	database, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	tracer, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:    "fieldline",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize tracer: %w", err)
	}

	var provider scoring.WeightsProvider
	if cfg.WeightsPath != "" {
		fileProvider, err := scoring.NewFileWeightsProvider(cfg.WeightsPath)
		if err != nil {
			return nil, fmt.Errorf("load weights: %w", err)
		}
		provider = fileProvider
	} else {
		provider = scoring.StaticWeightsProvider{Config: scoring.DefaultWeightsConfig()}
	}

	cacheCfg := distance.DefaultCacheConfig()
	cacheCfg.RedisAddr = cfg.RedisAddr
	cacheCfg.RedisPassword = cfg.RedisPassword
	cacheCfg.RedisDB = cfg.RedisDB
	cache, err := distance.NewCache(cacheCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize estimate cache: %w", err)
	}

	resolver := distance.NewRoutingResolver(distance.RoutingConfig{
		BaseURL: cfg.RoutingBaseURL,
		APIKey:  cfg.RoutingAPIKey,
		Timeout: cfg.RoutingTimeout,
	}, cache, logger)

	busCfg := eventbus.DefaultRedisConfig()
	busCfg.Addr = cfg.RedisAddr
	busCfg.Password = cfg.RedisPassword
	busCfg.DB = cfg.RedisDB
	bus, err := eventbus.NewRedisBus(busCfg, cfg.InstanceID, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize event bus: %w", err)
	}

	hours := schedule.NewWorkingHoursResolver(logger)
	availability := schedule.NewAvailabilityEngine(hours, logger)
	fatigue := schedule.NewFatigueEvaluator(logger)
	policy := schedule.BufferPolicy{
		MinMinutes: cfg.BufferMinMinutes,
		Multiplier: cfg.BufferMultiplier,
		MaxMinutes: cfg.BufferMaxMinutes,
	}
	slots := schedule.NewSlotGenerator(availability, fatigue, policy, logger)
	scorer := scoring.NewEngine(logger)

	st := store.New(database)
	orchestrator := recommend.NewOrchestrator(slots, scorer, resolver, provider, fatigue, cfg.RecommendWorkers, logger)
	service := recommend.NewService(st, orchestrator, bus, cfg.RegionalMultiplier, cfg.RecommendMaxResults, logger)
	bookingSvc := booking.NewService(database, availability, fatigue, bus, logger)

	return &runtime{
		db:       database,
		store:    st,
		bus:      bus,
		cache:    cache,
		tracer:   tracer,
		service:  service,
		booking:  bookingSvc,
		exporter: schedule.NewExportService(database, logger),
		provider: provider,
	}, nil
}

// serveMetrics exposes the Prometheus endpoint for the lifetime of the
// command and keeps the connection pool gauge fresh.
func (r *runtime) serveMetrics() {
	if cfg.MetricsBind == "" {
		return
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler())
		if err := http.ListenAndServe(cfg.MetricsBind, mux); err != nil {
			logger.Warn().Err(err).Msg("metrics endpoint stopped")
		}
	}()
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			db.UpdateConnectionMetrics(r.db)
		}
	}()
}

// close releases all runtime resources.
func (r *runtime) close(ctx context.Context) {
	if err := r.bus.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close event bus")
	}
	if err := r.cache.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close estimate cache")
	}
	if err := r.tracer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown tracer provider")
	}
	if err := db.Close(r.db); err != nil {
		logger.Error().Err(err).Msg("failed to close database")
	}
}

// contextWithSignals cancels the returned context on SIGINT/SIGTERM.
func contextWithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
