// Package cache holds the in-process TTL cache used to throttle provider calls.
package cache

import (
	"sync"
	"time"
)

// DefaultSweepInterval bounds how often a full expiry sweep may run.
const DefaultSweepInterval = 30 * time.Second

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is an in-memory cache whose entries expire after a per-entry TTL.
//
// Expired entries are dropped lazily: a stale entry is deleted when read, and a
// full sweep runs opportunistically from Get/Set at most once per sweep interval.
// There is no background goroutine. State is per-process and lost on restart.
type TTL[K comparable, V any] struct {
	mu            sync.Mutex
	store         map[K]entry[V]
	defaultTTL    time.Duration
	sweepInterval time.Duration
	lastSweepAt   time.Time
}

// Option configures a TTL cache.
type Option func(*options)

type options struct {
	sweepInterval time.Duration
}

// WithSweepInterval overrides DefaultSweepInterval.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) { o.sweepInterval = d }
}

// NewTTL creates a cache whose Set uses defaultTTL when called with ttl <= 0.
func NewTTL[K comparable, V any](defaultTTL time.Duration, opts ...Option) *TTL[K, V] {
	o := options{sweepInterval: DefaultSweepInterval}
	for _, fn := range opts {
		fn(&o)
	}
	return &TTL[K, V]{
		store:         make(map[K]entry[V]),
		defaultTTL:    defaultTTL,
		sweepInterval: o.sweepInterval,
	}
}

// Get returns the value for key if it expires strictly after now.
// Every call, hit or miss, may trigger the throttled sweep.
func (c *TTL[K, V]) Get(key K, now time.Time) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.maybeSweep(now)

	var zero V
	e, ok := c.store[key]
	if !ok {
		return zero, false
	}
	if !e.expiresAt.After(now) {
		delete(c.store, key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key until now+ttl, replacing any existing entry.
func (c *TTL[K, V]) Set(key K, value V, ttl time.Duration, now time.Time) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = entry[V]{value: value, expiresAt: now.Add(ttl)}
	c.maybeSweep(now)
}

// Clear drops every entry and resets the sweep clock.
func (c *TTL[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.store)
	c.lastSweepAt = time.Time{}
}

// Len reports the number of stored entries, expired or not.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.store)
}

// maybeSweep must be called with c.mu held.
func (c *TTL[K, V]) maybeSweep(now time.Time) {
	if now.Sub(c.lastSweepAt) < c.sweepInterval {
		return
	}
	c.lastSweepAt = now

	for k, e := range c.store {
		if !e.expiresAt.After(now) {
			delete(c.store, k)
		}
	}
}
