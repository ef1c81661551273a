// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package command

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Rate limiter defaults and floors.
const (
	DefaultBurstCapacity   = 10
	DefaultSustainedRate   = 2.0 // commands per second
	MinBurstCapacity       = 1
	MinSustainedRate       = 0.1
	DefaultCleanupInterval = 5 * time.Minute
	DefaultSessionMaxAge   = time.Hour
)

// RateLimiterConfig configures a RateLimiter. Zero fields take the
// defaults above.
type RateLimiterConfig struct {
	BurstCapacity   int
	SustainedRate   float64
	CleanupInterval time.Duration
	SessionMaxAge   time.Duration
}

type sessionBucket struct {
	tokens    float64
	lastCheck time.Time
}

// RateLimiter is a per-session token bucket. It is safe for concurrent use.
// A background goroutine drops idle buckets; Close stops it.
type RateLimiter struct {
	mu            sync.Mutex
	sessions      map[ulid.ULID]*sessionBucket
	burstCapacity int
	sustainedRate float64 // tokens per second
	sessionMaxAge time.Duration

	stopChan  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	sessionGauge prometheus.Gauge // nil without a registry
}

// NewRateLimiter starts a rate limiter. Call Close to stop its cleanup
// goroutine.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return newRateLimiter(cfg, nil)
}

// NewRateLimiterWithRegistry is NewRateLimiter plus a gauge of tracked
// sessions registered with reg.
func NewRateLimiterWithRegistry(cfg RateLimiterConfig, reg prometheus.Registerer) *RateLimiter {
	return newRateLimiter(cfg, reg)
}

func orDefault[T int | float64 | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

func newRateLimiter(cfg RateLimiterConfig, reg prometheus.Registerer) *RateLimiter {
	rl := &RateLimiter{
		sessions:      make(map[ulid.ULID]*sessionBucket),
		burstCapacity: max(orDefault(cfg.BurstCapacity, DefaultBurstCapacity), MinBurstCapacity),
		sustainedRate: max(orDefault(cfg.SustainedRate, DefaultSustainedRate), MinSustainedRate),
		sessionMaxAge: orDefault(cfg.SessionMaxAge, DefaultSessionMaxAge),
		stopChan:      make(chan struct{}),
	}
	if reg != nil {
		rl.sessionGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roo_ratelimiter_sessions",
			Help: "Current number of tracked rate limiter sessions",
		})
		reg.MustRegister(rl.sessionGauge)
	}

	rl.wg.Add(1)
	go rl.cleanupLoop(orDefault(cfg.CleanupInterval, DefaultCleanupInterval))
	return rl
}

// refill adds the tokens earned since the last check, capped at burst.
func (b *sessionBucket) refill(now time.Time, rate float64, burst int) {
	b.tokens = min(b.tokens+now.Sub(b.lastCheck).Seconds()*rate, float64(burst))
	b.lastCheck = now
}

// Allow takes a token from the session's bucket. When the bucket is empty
// it returns false and the milliseconds until the next token.
func (rl *RateLimiter) Allow(sessionID ulid.ULID) (allowed bool, cooldownMs int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	bucket, ok := rl.sessions[sessionID]
	if !ok {
		bucket = &sessionBucket{tokens: float64(rl.burstCapacity), lastCheck: now}
		rl.sessions[sessionID] = bucket
	}
	bucket.refill(now, rl.sustainedRate, rl.burstCapacity)

	if bucket.tokens >= 1 {
		bucket.tokens--
		return true, 0
	}
	wait := (1 - bucket.tokens) / rl.sustainedRate
	return false, int64(wait * 1000)
}

// SessionCount returns the number of tracked sessions.
func (rl *RateLimiter) SessionCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.sessions)
}

// Cleanup drops buckets idle for longer than maxAge.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := time.Now().Add(-maxAge)
	for sessionID, bucket := range rl.sessions {
		if bucket.lastCheck.Before(threshold) {
			delete(rl.sessions, sessionID)
		}
	}

	if rl.sessionGauge != nil {
		rl.sessionGauge.Set(float64(len(rl.sessions)))
	}
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	defer rl.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.Cleanup(rl.sessionMaxAge)
		}
	}
}

// Close stops the cleanup goroutine and waits for it. Later calls are
// no-ops.
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.stopChan) })
	rl.wg.Wait()
}

// Forget drops the bucket of a session that has ended.
func (rl *RateLimiter) Forget(sessionID ulid.ULID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.sessions, sessionID)
	if rl.sessionGauge != nil {
		rl.sessionGauge.Set(float64(len(rl.sessions)))
	}
}
