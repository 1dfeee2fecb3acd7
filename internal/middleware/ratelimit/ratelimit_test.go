package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(limit int) (*Limiter, *time.Time) {
	rl := NewLimiter(Config{Requests: limit, Window: time.Minute, CleanupInterval: time.Hour})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllowWindow(t *testing.T) {
	rl, now := newTestLimiter(2)
	defer rl.Stop()

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow("a"); !ok {
			t.Fatalf("request %d should pass", i)
		}
	}
	ok, wait := rl.Allow("a")
	if ok {
		t.Fatal("third request should be limited")
	}
	if wait != time.Minute {
		t.Fatalf("expected full window wait, got %v", wait)
	}
	if ok, _ := rl.Allow("b"); !ok {
		t.Fatal("other clients are independent")
	}

	*now = now.Add(time.Minute)
	if ok, _ := rl.Allow("a"); !ok {
		t.Fatal("window should have reset")
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(5)
	defer rl.Stop()

	rl.Allow("a")
	rl.Allow("b")
	*now = now.Add(30 * time.Second)
	rl.Allow("c")
	*now = now.Add(40 * time.Second)

	if removed := rl.cleanupStaleEntries(); removed != 2 {
		t.Fatalf("expected 2 stale clients, got %d", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Fatalf("expected 1 active client, got %d", rl.ActiveClients())
	}
	rl.Stop()
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(1)
	defer rl.Stop()

	limited := 0
	h := rl.Middleware(
		func(*http.Request) string { return "1.1.1.1" },
		func(w http.ResponseWriter, r *http.Request) {
			limited++
			w.WriteHeader(http.StatusTooManyRequests)
		},
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/upload", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("first request got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/upload", nil))
	if rr.Code != http.StatusTooManyRequests || limited != 1 {
		t.Fatalf("second request got %d (limited=%d)", rr.Code, limited)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}
}
