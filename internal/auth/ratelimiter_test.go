package auth

import (
	"fmt"
	"testing"
	"time"
)

func TestRateLimiterAllowsUnderThreshold(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxAttempts: 5, WindowMs: 60_000, MaxEntries: 100})

	for i := 0; i < 4; i++ {
		rl.RecordFailure("1.2.3.4")
		if err := rl.Check("1.2.3.4"); err != nil {
			t.Fatalf("Check after %d failures = %v, want nil", i+1, err)
		}
	}
}

// TestRateLimiterBlocksOnReach is the block-on-reach resolution: the
// MaxAttempts'th failure itself must trigger a block, not merely schedule
// one to take effect a call later.
func TestRateLimiterBlocksOnReach(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxAttempts: 3, WindowMs: 60_000, MaxEntries: 100})

	rl.RecordFailure("1.2.3.4")
	rl.RecordFailure("1.2.3.4")
	rl.RecordFailure("1.2.3.4")

	err := rl.Check("1.2.3.4")
	if err == nil {
		t.Fatal("Check after reaching MaxAttempts = nil, want RateLimit error")
	}
	if err.RetryAfterSeconds <= 0 {
		t.Fatalf("RetryAfterSeconds = %d, want > 0", err.RetryAfterSeconds)
	}
}

// TestRateLimiterWindowResetStartsFreshCountFromOne is the window-reset
// resolution: once the configured window has elapsed since a record's
// first attempt, the next failure starts a brand-new record at count one,
// not a reset-to-zero that would take a second failure to register.
func TestRateLimiterWindowResetStartsFreshCountFromOne(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxAttempts: 2, WindowMs: 1, MaxEntries: 100})

	rl.RecordFailure("1.2.3.4")
	time.Sleep(5 * time.Millisecond) // let the 1ms window elapse
	rl.RecordFailure("1.2.3.4")

	// The second failure opened a new window at a count of one, which is
	// below MaxAttempts, so the client must not be blocked.
	if err := rl.Check("1.2.3.4"); err != nil {
		t.Fatalf("Check after one failure in a fresh window = %v, want nil", err)
	}
	if got := rl.Size(); got != 1 {
		t.Fatalf("Size = %d, want 1 tracked IP", got)
	}
}

func TestRateLimiterUnknownIPNotBlocked(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimitConfig())
	if err := rl.Check("9.9.9.9"); err != nil {
		t.Fatalf("Check for unknown IP = %v, want nil", err)
	}
}

func TestRateLimiterBlockExpiresAndIsDropped(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxAttempts: 1, WindowMs: 50, MaxEntries: 100})

	rl.RecordFailure("1.2.3.4")
	if err := rl.Check("1.2.3.4"); err == nil {
		t.Fatal("Check immediately after reaching MaxAttempts = nil, want blocked")
	}

	// Sleep past the 50ms block, then Sweep must drop the expired record.
	time.Sleep(60 * time.Millisecond)
	rl.Sweep()
	if got := rl.Size(); got != 0 {
		t.Fatalf("Size after the block expired and Sweep ran = %d, want 0", got)
	}
}

// TestRateLimiterStoreNeverExceedsMaxEntries is the store-bound invariant:
// RecordFailure must never let the map grow past MaxEntries.
func TestRateLimiterStoreNeverExceedsMaxEntries(t *testing.T) {
	const maxEntries = 10
	rl := NewRateLimiter(RateLimitConfig{MaxAttempts: 100, WindowMs: 60_000, MaxEntries: maxEntries})

	for i := 0; i < 50; i++ {
		ip := fmt.Sprintf("10.0.%d.%d", i/256, i%256)
		rl.RecordFailure(ip)
		if got := rl.Size(); got > maxEntries {
			t.Fatalf("Size = %d after %d failures, want <= %d", got, i+1, maxEntries)
		}
	}
}
