package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToBurst(t *testing.T) {
	rl := &RateLimiter{visitors: make(map[string]*Visitor), rate: time.Minute, burst: 3}

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should have been allowed within burst", i)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("request beyond burst should be denied")
	}
}

func TestRateLimiterTracksVisitorsIndependently(t *testing.T) {
	rl := &RateLimiter{visitors: make(map[string]*Visitor), rate: time.Minute, burst: 1}

	if !rl.Allow("1.1.1.1") {
		t.Fatal("first visitor's first request should be allowed")
	}
	if !rl.Allow("2.2.2.2") {
		t.Error("a different visitor should have its own bucket")
	}
	if rl.Allow("1.1.1.1") {
		t.Error("first visitor should be exhausted")
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	rl := &RateLimiter{visitors: make(map[string]*Visitor), rate: 10 * time.Millisecond, burst: 1}

	if !rl.Allow("1.2.3.4") {
		t.Fatal("expected the first request to be allowed")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("expected the bucket to be empty immediately after")
	}

	time.Sleep(20 * time.Millisecond)

	if !rl.Allow("1.2.3.4") {
		t.Error("expected a token to have been refilled after waiting past the refill interval")
	}
}
