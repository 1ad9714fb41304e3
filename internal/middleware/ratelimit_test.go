package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func requestFrom(ip string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
	r.RemoteAddr = ip + ":51234"
	return r
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRedisRateLimit_BlocksAfterMax(t *testing.T) {
	mr, rdb := newTestRedis(t)
	h := RedisRateLimit(rdb, 2, time.Minute)(okHandler())

	for i, wantRemaining := range []string{"1", "0"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, requestFrom("10.0.0.1"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
		if got := w.Header().Get("X-RateLimit-Remaining"); got != wantRemaining {
			t.Errorf("request %d: remaining = %q, want %q", i+1, got, wantRemaining)
		}
		if got := w.Header().Get("X-RateLimit-Limit"); got != "2" {
			t.Errorf("limit header = %q, want 2", got)
		}
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.1"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status = %d, want 429", w.Code)
	}
	if !mr.Exists(BlockedIPKeyPrefix + "10.0.0.1") {
		t.Error("expected IP to be blocked")
	}

	// Another client is unaffected.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.2"))
	if w.Code != http.StatusOK {
		t.Errorf("other IP: status = %d, want 200", w.Code)
	}

	// The block outlives the counting window.
	mr.FastForward(2 * time.Minute)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.1"))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("blocked IP after window: status = %d, want 429", w.Code)
	}

	mr.FastForward(BlockedIPDuration)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.1"))
	if w.Code != http.StatusOK {
		t.Errorf("after block expiry: status = %d, want 200", w.Code)
	}
}

func TestRedisRateLimit_WindowResets(t *testing.T) {
	mr, rdb := newTestRedis(t)
	h := RedisRateLimit(rdb, 3, time.Minute)(okHandler())

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.3"))
	}
	if ttl := mr.TTL(RateLimitKeyPrefix + "10.0.0.3"); ttl <= 0 || ttl > time.Minute {
		t.Errorf("counter ttl = %s, want within (0, 1m]", ttl)
	}

	mr.FastForward(61 * time.Second)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.3"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 in a fresh window", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "2" {
		t.Errorf("remaining = %q, want 2", got)
	}
}

func TestRedisRateLimit_FailsOpen(t *testing.T) {
	captureLog(t)
	mr, rdb := newTestRedis(t)
	mr.Close()

	h := RedisRateLimit(rdb, 1, time.Minute)(okHandler())
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, requestFrom("10.0.0.4"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200 with redis down", i+1, w.Code)
		}
	}
}
