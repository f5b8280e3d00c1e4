package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterRefills(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return clock }

	if !rl.Allow("k") || !rl.Allow("k") {
		t.Fatal("expected burst of two")
	}
	if rl.Allow("k") {
		t.Fatal("expected third request to be limited")
	}
	if !rl.Allow("other") {
		t.Fatal("keys must not share buckets")
	}
	clock = clock.Add(time.Second)
	if !rl.Allow("k") {
		t.Fatal("expected refill after one second")
	}

	clock = clock.Add(time.Hour)
	if dropped := rl.Sweep(10 * time.Minute); dropped != 2 {
		t.Fatalf("expected both buckets swept, got %d", dropped)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	handler := RateLimit(rl, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(session string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
		req.Header.Set("X-Session-ID", session)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := send("a"); code != http.StatusOK {
		t.Fatalf("first request: %d", code)
	}
	if code := send("a"); code != http.StatusTooManyRequests {
		t.Fatalf("second request: %d", code)
	}
	if code := send("b"); code != http.StatusOK {
		t.Fatalf("other session: %d", code)
	}
}

func TestRequestLoggerEchoesRequestID(t *testing.T) {
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") != "req-42" {
		t.Fatalf("expected request id echo, got %q", rec.Header().Get("X-Request-ID"))
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected status passthrough, got %d", rec.Code)
	}
}
