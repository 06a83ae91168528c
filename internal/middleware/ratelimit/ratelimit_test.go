package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	rl := NewLimiter(Config{Requests: 2, Period: time.Minute})
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i, want := range []bool{true, true, false, false} {
		if got := rl.Allow("1.2.3.4"); got != want {
			t.Errorf("request %d: Allow() = %v, want %v", i, got, want)
		}
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other clients have their own window")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Error("window should reset after the period")
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	rl := NewLimiter(Config{Requests: 1, Period: time.Minute})
	defer rl.Stop()

	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow("a")
	rl.Allow("b")
	if rl.ActiveClients() != 2 {
		t.Fatalf("ActiveClients() = %d, want 2", rl.ActiveClients())
	}

	now = now.Add(2 * time.Minute)
	rl.cleanup()
	if rl.ActiveClients() != 0 {
		t.Errorf("ActiveClients() after cleanup = %d, want 0", rl.ActiveClients())
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl := NewLimiter(Config{Requests: 1, Period: time.Minute})
	defer rl.Stop()
	rl.Stop() // idempotent

	h := rl.Middleware(func(r *http.Request) string { return r.RemoteAddr })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) }))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/transactions", nil)
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [201 429]", codes)
	}
}
