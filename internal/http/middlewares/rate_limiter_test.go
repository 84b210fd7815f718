package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newLimitedRouter(rl *RateLimiter, keyFn func(*gin.Context) string) *gin.Engine {
	r := gin.New()
	r.GET("/ping", rl.Middleware(keyFn), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return r
}

func hit(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	store := NewMemoryCounterStore()
	dropped := 0

	rl := NewRateLimiter("general", store, 3, time.Minute, func(string) { dropped++ })
	r := newLimitedRouter(rl, KeyByIP)

	for i := 0; i < 3; i++ {
		if w := hit(r, "10.0.0.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
	}

	w := hit(r, "10.0.0.1:1234")

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}

	if w.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Success || body.Error.Code != "RATE_LIMIT_EXCEEDED" {
		t.Fatalf("body = %s", w.Body.String())
	}

	if dropped != 1 {
		t.Fatalf("onDrop called %d times, want 1", dropped)
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	store := NewMemoryCounterStore()
	rl := NewRateLimiter("general", store, 1, time.Minute, nil)
	r := newLimitedRouter(rl, KeyByIP)

	if w := hit(r, "10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Fatalf("first client: %d", w.Code)
	}
	if w := hit(r, "10.0.0.1:1234"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("first client second hit: %d", w.Code)
	}
	if w := hit(r, "10.0.0.2:1234"); w.Code != http.StatusOK {
		t.Fatalf("second client should have its own counter: %d", w.Code)
	}
}

func TestRateLimiterWindowResets(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	store := NewMemoryCounterStore()
	store.now = func() time.Time { return now }

	rl := NewRateLimiter("auth", store, 1, 15*time.Minute, nil)
	r := newLimitedRouter(rl, KeyByIP)

	if w := hit(r, "10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Fatalf("first hit: %d", w.Code)
	}
	if w := hit(r, "10.0.0.1:1234"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second hit inside window: %d", w.Code)
	}

	now = now.Add(15*time.Minute + time.Second)

	if w := hit(r, "10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Fatalf("hit after window expiry: %d", w.Code)
	}
}

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int, time.Duration, error) {
	return 0, 0, errors.New("store unavailable")
}

func TestRateLimiterDegradesOpen(t *testing.T) {
	rl := NewRateLimiter("general", failingStore{}, 1, time.Minute, nil)
	r := newLimitedRouter(rl, KeyByIP)

	for i := 0; i < 5; i++ {
		if w := hit(r, "10.0.0.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("request %d blocked while store is down: %d", i+1, w.Code)
		}
	}
}

func TestKeyByIP(t *testing.T) {
	r := gin.New()

	var key string

	r.GET("/k", func(c *gin.Context) {
		key = KeyByIP(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/k", nil)
	req.RemoteAddr = "10.0.0.9:4321"
	r.ServeHTTP(httptest.NewRecorder(), req)

	if key != "10.0.0.9" {
		t.Fatalf("key = %q, want the client ip", key)
	}
}

func TestMemoryCounterStoreTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	store := NewMemoryCounterStore()
	store.now = func() time.Time { return now }

	count, ttl, err := store.Incr(context.Background(), "k", time.Minute)
	if err != nil || count != 1 || ttl != time.Minute {
		t.Fatalf("first incr: count=%d ttl=%s err=%v", count, ttl, err)
	}

	now = now.Add(20 * time.Second)

	count, ttl, err = store.Incr(context.Background(), "k", time.Minute)
	if err != nil || count != 2 || ttl != 40*time.Second {
		t.Fatalf("second incr: count=%d ttl=%s err=%v", count, ttl, err)
	}
}
