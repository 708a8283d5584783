package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterBurstThenRefill(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2024, 11, 6, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("expected burst of two to be allowed")
	}
	if rl.Allow("a") {
		t.Fatalf("expected third request to be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("expected separate key to have its own bucket")
	}
	now = now.Add(1100 * time.Millisecond)
	if !rl.Allow("a") {
		t.Fatalf("expected a token after refill")
	}
}

func TestRateLimiterEvictsIdle(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2024, 11, 6, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow("a")
	now = now.Add(limiterIdle + time.Minute)
	rl.Allow("b")
	if _, ok := rl.limiters["a"]; ok {
		t.Fatalf("expected idle limiter to be evicted")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimit(0.001, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/v1/conversations/x/messages", nil)
		req.Header.Set("X-Real-Ip", "203.0.113.9")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := send(); code != http.StatusAccepted {
		t.Fatalf("expected first request accepted, got %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
}
