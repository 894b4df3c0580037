package auth

import (
	"sort"
	"sync"
	"time"

	"github.com/sandboxcore/core/internal/errs"
	"github.com/sandboxcore/core/internal/logging"
	"github.com/sandboxcore/core/internal/metrics"
)

// RateLimitConfig configures the sliding-window failure limiter.
type RateLimitConfig struct {
	MaxAttempts int
	WindowMs    int64
	MaxEntries  int
}

// DefaultRateLimitConfig matches spec.md's defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{MaxAttempts: 5, WindowMs: 60_000, MaxEntries: 10_000}
}

// record is one client IP's sliding-window failure state.
type record struct {
	attempts     int
	firstAttempt int64 // monotonic ms
	blockedUntil int64 // monotonic ms, 0 if not blocked
}

// RateLimiter tracks authentication-failure counts per client IP in a
// bounded in-memory store. The store is a plain map guarded by a mutex
// rather than ristretto: ristretto is an approximate, probabilistic cache
// (admission can silently reject a write), which is wrong for a
// security-critical exact-count structure where every record must be
// durable until explicitly evicted or swept. Ristretto is used instead for
// the tool-registry cache, where approximate admission is harmless.
type RateLimiter struct {
	mu      sync.Mutex
	records map[string]*record
	config  RateLimitConfig
}

// NewRateLimiter creates a RateLimiter with the given configuration.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.WindowMs <= 0 {
		config.WindowMs = 60_000
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 10_000
	}
	return &RateLimiter{
		records: make(map[string]*record),
		config:  config,
	}
}

// clockStart anchors nowMs to a monotonic clock reading taken at startup.
var clockStart = time.Now()

func nowMs() int64 {
	return time.Since(clockStart).Milliseconds()
}

// Check reports whether clientIP is currently blocked. If a block has
// expired, the record is dropped before the caller proceeds.
func (rl *RateLimiter) Check(clientIP string) *errs.Error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.records[clientIP]
	if !ok {
		return nil
	}

	now := nowMs()
	if rec.blockedUntil > 0 {
		if now < rec.blockedUntil {
			retryAfter := (rec.blockedUntil - now + 999) / 1000 // ceil seconds
			return errs.RateLimited(int(retryAfter))
		}
		// Block expired: drop before processing.
		delete(rl.records, clientIP)
		metrics.RateLimitStoreSize.Set(float64(len(rl.records)))
	}
	return nil
}

// RecordFailure registers an authentication failure for clientIP, possibly
// transitioning the record into a block. Success never calls this: it
// resists key-probing attacks by never resetting the counter on success.
func (rl *RateLimiter) RecordFailure(clientIP string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := nowMs()
	rec, ok := rl.records[clientIP]

	if !ok {
		rec = &record{firstAttempt: now}
		rl.records[clientIP] = rec
		rl.evictIfOverCapacityLocked()
		metrics.RateLimitStoreSize.Set(float64(len(rl.records)))
	} else if now-rec.firstAttempt > rl.config.WindowMs {
		rec = &record{firstAttempt: now}
		rl.records[clientIP] = rec
	}

	rec.attempts++
	if rec.attempts >= rl.config.MaxAttempts {
		rec.blockedUntil = now + rl.config.WindowMs
	}
}

// evictIfOverCapacityLocked drops the oldest 10% of records by firstAttempt
// when the store would exceed MaxEntries. Caller must hold rl.mu.
func (rl *RateLimiter) evictIfOverCapacityLocked() {
	if len(rl.records) <= rl.config.MaxEntries {
		return
	}

	type entry struct {
		ip    string
		first int64
	}
	entries := make([]entry, 0, len(rl.records))
	for ip, rec := range rl.records {
		entries = append(entries, entry{ip, rec.firstAttempt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].first < entries[j].first })

	evictCount := len(entries) / 10
	if evictCount == 0 {
		evictCount = 1
	}
	for i := 0; i < evictCount && i < len(entries); i++ {
		delete(rl.records, entries[i].ip)
	}
}

// Sweep removes records that are blocked-and-expired, or non-blocked with
// an expired window. Intended to be run by a background suture service at
// a 60-second interval.
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := nowMs()
	for ip, rec := range rl.records {
		if rec.blockedUntil > 0 && now >= rec.blockedUntil {
			delete(rl.records, ip)
			continue
		}
		if rec.blockedUntil == 0 && now-rec.firstAttempt > rl.config.WindowMs {
			delete(rl.records, ip)
		}
	}
	metrics.RateLimitStoreSize.Set(float64(len(rl.records)))
	logging.Debug().Int("entries", len(rl.records)).Msg("rate limit sweep complete")
}

// Size returns the current number of tracked IPs, for tests and metrics.
func (rl *RateLimiter) Size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.records)
}
