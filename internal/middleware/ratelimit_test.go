package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRateLimiter(t *testing.T, maxReqs, windowSec int) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRateLimiter(client, "ratelimit:search", maxReqs, windowSec), mr
}

func okHandler(rl *RateLimiter) http.Handler {
	return rl.Middleware(ClientIP)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	rl, _ := setupRateLimiter(t, 5, 60)
	handler := okHandler(rl)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("POST", "/api/v1/context/search", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	rl, _ := setupRateLimiter(t, 3, 60)
	handler := okHandler(rl)

	var last int
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest("POST", "/api/v1/context/search", nil)
		req.RemoteAddr = "192.168.1.2:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", last)
	}
}

func TestRateLimiter_SeparateBucketsPerKey(t *testing.T) {
	rl, _ := setupRateLimiter(t, 1, 60)
	handler := okHandler(rl)

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest("POST", "/api/v1/context/search", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("first request for %s: expected 200, got %d", addr, rec.Code)
		}
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl, mr := setupRateLimiter(t, 1, 10)
	handler := okHandler(rl)

	send := func() int {
		req := httptest.NewRequest("POST", "/api/v1/context/search", nil)
		req.RemoteAddr = "10.0.0.3:1"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(); code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", code)
	}

	mr.FastForward(11 * time.Second)
	// miniredis FastForward advances TTLs; the window itself is scored by
	// wall-clock time, so drop the old member directly.
	mr.Del("ratelimit:search:10.0.0.3")

	if code := send(); code != http.StatusOK {
		t.Fatalf("after window: expected 200, got %d", code)
	}
}
