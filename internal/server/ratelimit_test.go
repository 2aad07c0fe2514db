package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("client") {
			t.Fatalf("Request %d should be allowed within burst", i)
		}
	}
	if rl.Allow("client") {
		t.Error("Request beyond burst should be denied")
	}
}

func TestRateLimiterPerKey(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute, 1)

	if !rl.Allow("a") {
		t.Error("First request for key a should be allowed")
	}
	if !rl.Allow("b") {
		t.Error("First request for key b should be allowed")
	}
	if rl.Allow("a") {
		t.Error("Second request for key a should be denied")
	}
}

func TestRateLimiterRefill(t *testing.T) {
	rl := NewRateLimiter(600, 100*time.Millisecond, 1)

	if !rl.Allow("client") {
		t.Fatal("First request should be allowed")
	}
	if rl.Allow("client") {
		t.Fatal("Second immediate request should be denied")
	}

	time.Sleep(20 * time.Millisecond)

	if !rl.Allow("client") {
		t.Error("Request after refill window should be allowed")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute, 1)

	called := 0
	handler := rl.Middleware(func(w http.ResponseWriter, r *http.Request) {
		called++
	})

	req := httptest.NewRequest("GET", "/api/convert", nil)

	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusOK || called != 1 {
		t.Fatalf("First request should pass, got status %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", w.Code)
	}
	if called != 1 {
		t.Errorf("Handler should not run when limited, called %d times", called)
	}
}

func TestExtractLimiterPerClient(t *testing.T) {
	el := NewExtractLimiter(1, 10)

	if !el.Acquire("client") {
		t.Fatal("First job should acquire")
	}
	if el.Acquire("client") {
		t.Error("Second concurrent job for same client should be denied")
	}

	el.Release("client")

	if !el.Acquire("client") {
		t.Error("Job after release should acquire")
	}
}

func TestExtractLimiterGlobalCap(t *testing.T) {
	el := NewExtractLimiter(5, 2)

	if !el.Acquire("a") || !el.Acquire("b") {
		t.Fatal("First two jobs should acquire")
	}
	if el.Acquire("c") {
		t.Error("Job beyond global cap should be denied")
	}

	el.Release("a")

	if !el.Acquire("c") {
		t.Error("Job after global release should acquire")
	}
}
