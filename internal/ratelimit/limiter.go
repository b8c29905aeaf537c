// Package ratelimit implements the sliding-window message governor used for
// both per-participant message throttling and coarse per-IP request limiting.
// The store is an in-memory table with periodic TTL eviction; losing an entry
// early only resets that key's throttling history, so eviction is a memory
// bound, not a correctness requirement.
package ratelimit

import (
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Config holds the tuning knobs of one limiter instance.
type Config struct {
	// Window is the sliding window over which events are counted.
	Window time.Duration
	// MaxEvents is the number of events allowed per window. The event that
	// tips the count over is itself denied.
	MaxEvents int
	// MinInterval is the minimum spacing between two events for the same
	// key. A single too-fast event triggers a block, not just a drop.
	// Zero disables the spacing check.
	MinInterval time.Duration
	// BlockFor is how long a key stays blocked after a violation.
	BlockFor time.Duration
}

type entry struct {
	lastReset    time.Time
	timestamps   []time.Time
	blockedUntil time.Time
}

// Limiter is a per-key sliding-window rate limiter with temporary blocking.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]*entry
	clock   clock.Clock
}

// New creates a Limiter. Pass clock.New() in production; tests inject a mock
// clock to step time deterministically.
func New(cfg Config, clk clock.Clock) *Limiter {
	return &Limiter{
		cfg:     cfg,
		entries: make(map[string]*entry),
		clock:   clk,
	}
}

// Track creates a fresh entry for the key, resetting any prior history.
// Called when a connection is admitted.
func (l *Limiter) Track(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = &entry{lastReset: l.clock.Now()}
}

// Allow reports whether an event for the key is admitted right now. A denial
// caused by a violation (too fast, or over the window budget) also blocks the
// key for BlockFor.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{lastReset: now}
		l.entries[key] = e
	}

	if now.Before(e.blockedUntil) {
		remaining := e.blockedUntil.Sub(now).Round(time.Second)
		log.Printf("WARNING: rate limit: key %s is blocked, %s remaining", key, remaining)
		return false
	}

	// Roll the window over if it has fully elapsed.
	if now.Sub(e.lastReset) > l.cfg.Window {
		e.lastReset = now
		e.timestamps = e.timestamps[:0]
	}

	if l.cfg.MinInterval > 0 && len(e.timestamps) > 0 {
		last := e.timestamps[len(e.timestamps)-1]
		if now.Sub(last) < l.cfg.MinInterval {
			e.blockedUntil = now.Add(l.cfg.BlockFor)
			log.Printf("WARNING: rate limit: key %s sending too fast, blocked for %s", key, l.cfg.BlockFor)
			return false
		}
	}

	e.timestamps = append(e.timestamps, now)

	// Drop timestamps that fell out of the window.
	cutoff := now.Add(-l.cfg.Window)
	kept := e.timestamps[:0]
	for _, ts := range e.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	e.timestamps = kept

	if len(e.timestamps) > l.cfg.MaxEvents {
		e.blockedUntil = now.Add(l.cfg.BlockFor)
		log.Printf("WARNING: rate limit: key %s exceeded %d events per window, blocked for %s", key, l.cfg.MaxEvents, l.cfg.BlockFor)
		return false
	}

	return true
}

// Blocked reports whether the key is currently serving a block penalty.
func (l *Limiter) Blocked(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	return ok && l.clock.Now().Before(e.blockedUntil)
}

// Forget drops all state for the key. Called on disconnect.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Cleanup evicts entries whose block has expired and whose window has been
// quiet for at least maxIdle.
func (l *Limiter) Cleanup(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	for key, e := range l.entries {
		if now.Sub(e.lastReset) > maxIdle && !now.Before(e.blockedUntil) {
			delete(l.entries, key)
		}
	}
}

// RunJanitor evicts stale entries every interval until stop is closed.
func (l *Limiter) RunJanitor(interval time.Duration, stop <-chan struct{}) {
	ticker := l.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup(interval)
		case <-stop:
			return
		}
	}
}
