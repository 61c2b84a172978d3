/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus bridges the in-process event bus across fieldline
// instances via redis pub/sub. When redis is unreachable the bus degrades to
// local-only delivery; recommendation and booking notifications then stay on
// the node that produced them.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fieldlinehq/fieldline/internal/events"
)

// RedisConfig contains redis connection and circuit breaker settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxFailures trips the bus into local-only mode.
	MaxFailures int
}

// DefaultRedisConfig returns the default redis bus configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxFailures:  5,
	}
}

// envelope wraps a payload on the wire so receivers can drop their own
// echoed messages.
type envelope struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	NodeID    string           `json:"node_id"`
	SentAt    time.Time        `json:"sent_at"`
}

// RedisBus delivers every published event locally and mirrors it to redis so
// subscribers on other fieldline nodes see it too.
type RedisBus struct {
	client *redis.Client
	logger zerolog.Logger
	local  *events.Bus
	nodeID string

	mu       sync.RWMutex
	subs     map[events.EventType][]events.Subscriber
	channels map[events.EventType]*redis.PubSub

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	localOnly bool
	failures  int
	maxFails  int
}

// NewRedisBus connects to redis and returns the bridged bus. An unreachable
// redis is not fatal; the bus starts in local-only mode instead.
func NewRedisBus(cfg RedisConfig, nodeID string, logger zerolog.Logger) (*RedisBus, error) {
	ctx, cancel := context.WithCancel(context.Background())

	bus := &RedisBus{
		logger:   logger.With().Str("component", "eventbus").Logger(),
		local:    events.NewBus(),
		nodeID:   nodeID,
		subs:     make(map[events.EventType][]events.Subscriber),
		channels: make(map[events.EventType]*redis.PubSub),
		ctx:      ctx,
		cancel:   cancel,
		maxFails: cfg.MaxFailures,
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		bus.logger.Warn().Err(err).Msg("redis unreachable, event bus running local-only")
		bus.localOnly = true
		_ = client.Close()
		return bus, nil
	}

	bus.client = client
	bus.logger.Info().Str("addr", cfg.Addr).Msg("redis event bus initialized")
	return bus, nil
}

// Subscribe registers a subscriber for one event type. The first subscriber
// per type also opens the redis subscription for cross-node delivery.
func (b *RedisBus) Subscribe(eventType events.EventType) events.Subscriber {
	sub := b.local.Subscribe(eventType)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[eventType] = append(b.subs[eventType], sub)

	if b.localOnly {
		return sub
	}
	if _, ok := b.channels[eventType]; !ok {
		pubsub := b.client.Subscribe(b.ctx, string(eventType))
		b.channels[eventType] = pubsub
		b.wg.Add(1)
		go b.receive(eventType, pubsub)
	}
	return sub
}

// Unsubscribe removes a subscriber and closes the redis subscription when it
// was the last one for its type.
func (b *RedisBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[eventType]
	for i, s := range subs {
		if s == sub {
			b.subs[eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}

	b.local.Unsubscribe(eventType, sub)

	if len(b.subs[eventType]) == 0 {
		if pubsub, ok := b.channels[eventType]; ok {
			_ = pubsub.Close()
			delete(b.channels, eventType)
		}
	}
}

// Publish delivers the payload to local subscribers and mirrors it to redis
// for other nodes. Redis failures count toward the circuit breaker but never
// block local delivery.
func (b *RedisBus) Publish(eventType events.EventType, payload events.Payload) {
	b.local.Publish(eventType, payload)

	b.mu.RLock()
	localOnly := b.localOnly
	b.mu.RUnlock()
	if localOnly {
		return
	}

	data, err := json.Marshal(envelope{
		EventType: eventType,
		Payload:   payload,
		NodeID:    b.nodeID,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to marshal event envelope")
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, 2*time.Second)
	defer cancel()

	if err := b.client.Publish(ctx, string(eventType), data).Err(); err != nil {
		b.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("redis publish failed")
		b.recordFailure()
		return
	}

	b.mu.Lock()
	b.failures = 0
	b.mu.Unlock()
}

// receive pumps one redis subscription into local subscribers, skipping
// messages this node published itself.
func (b *RedisBus) receive(eventType events.EventType, pubsub *redis.PubSub) {
	defer b.wg.Done()

	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				b.logger.Warn().Str("event_type", string(eventType)).Msg("redis subscription closed")
				b.recordFailure()
				return
			}

			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Error().Err(err).Msg("failed to unmarshal event envelope")
				continue
			}
			if env.NodeID == b.nodeID {
				continue
			}

			b.local.Publish(eventType, env.Payload)
		}
	}
}

// recordFailure trips the bus to local-only after MaxFailures consecutive
// redis errors.
func (b *RedisBus) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.failures < b.maxFails || b.localOnly {
		return
	}

	b.logger.Warn().Int("failures", b.failures).Msg("redis failure threshold reached, event bus now local-only")
	b.localOnly = true
	if b.client != nil {
		_ = b.client.Close()
	}
}

// Close stops all receivers and releases the redis connection.
func (b *RedisBus) Close() error {
	b.cancel()
	b.wg.Wait()

	b.mu.Lock()
	for _, pubsub := range b.channels {
		_ = pubsub.Close()
	}
	b.channels = make(map[events.EventType]*redis.PubSub)
	localOnly := b.localOnly
	b.mu.Unlock()

	if b.client != nil && !localOnly {
		if err := b.client.Close(); err != nil {
			return fmt.Errorf("close redis client: %w", err)
		}
	}
	return nil
}
