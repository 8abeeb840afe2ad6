package server

import (
	"testing"
	"time"
)

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	if rl.IsBlocked("10.0.0.1") {
		t.Error("fresh IP blocked")
	}

	rl.RecordFailure("10.0.0.1")
	rl.RecordFailure("10.0.0.1")
	if rl.IsBlocked("10.0.0.1") {
		t.Error("blocked below limit")
	}

	rl.RecordFailure("10.0.0.1")
	if !rl.IsBlocked("10.0.0.1") {
		t.Error("not blocked at limit")
	}

	// Other IPs are unaffected.
	if rl.IsBlocked("10.0.0.2") {
		t.Error("unrelated IP blocked")
	}
}

func TestRateLimiterResetOnSuccess(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	rl.RecordFailure("10.0.0.1")
	rl.RecordFailure("10.0.0.1")
	if !rl.IsBlocked("10.0.0.1") {
		t.Fatal("not blocked at limit")
	}

	rl.Reset("10.0.0.1")
	if rl.IsBlocked("10.0.0.1") {
		t.Error("still blocked after successful auth reset")
	}
	if rl.FailureCount("10.0.0.1") != 0 {
		t.Error("failure count survived reset")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)

	rl.RecordFailure("10.0.0.1")
	if !rl.IsBlocked("10.0.0.1") {
		t.Fatal("not blocked at limit")
	}

	time.Sleep(20 * time.Millisecond)
	if rl.IsBlocked("10.0.0.1") {
		t.Error("still blocked after window expiry")
	}

	// A failure after expiry starts a fresh window.
	rl.RecordFailure("10.0.0.1")
	if rl.FailureCount("10.0.0.1") != 1 {
		t.Errorf("count = %d, want fresh window count 1", rl.FailureCount("10.0.0.1"))
	}
}

func TestRateLimiterSweepsExpiredEntries(t *testing.T) {
	rl := NewRateLimiter(5, 10*time.Millisecond)

	rl.RecordFailure("10.0.0.1")
	rl.RecordFailure("10.0.0.2")
	time.Sleep(20 * time.Millisecond)

	// A recorded failure on any IP purges the expired ones.
	rl.RecordFailure("10.0.0.3")

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	if _, ok := rl.failures["10.0.0.1"]; ok {
		t.Error("expired entry for 10.0.0.1 not swept")
	}
	if _, ok := rl.failures["10.0.0.2"]; ok {
		t.Error("expired entry for 10.0.0.2 not swept")
	}
	if len(rl.failures) != 1 {
		t.Errorf("entries = %d, want only the fresh one", len(rl.failures))
	}
}
