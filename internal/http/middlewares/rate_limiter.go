package middlewares

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// CounterStore increments a counter within a fixed window and reports the
// running count plus the time left in the window.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

type RateLimiter struct {
	name   string
	store  CounterStore
	window time.Duration
	limit  int
	onDrop func(name string)
}

func NewRateLimiter(name string, store CounterStore, limit int, window time.Duration, onDrop func(name string)) *RateLimiter {
	return &RateLimiter{
		name:   name,
		store:  store,
		limit:  limit,
		window: window,
		onDrop: onDrop,
	}
}

// Middleware enforces the limit for a derived key. On store failure the
// request is allowed through; rate limiting degrades open, never closed.
func (rl *RateLimiter) Middleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			key = clientIP(c)
		}

		count, ttl, err := rl.store.Incr(c.Request.Context(), rl.name+":"+key, rl.window)

		if err != nil {
			c.Next()
			return
		}

		if count > rl.limit {
			retryAfter := int(ttl.Seconds())

			if retryAfter < 0 {
				retryAfter = 0
			}

			if rl.onDrop != nil {
				rl.onDrop(rl.name)
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "Too many requests, please try again later",
				},
			})

			return
		}

		c.Next()
	}
}

// KeyByIP rate limits per client address. Both limiters use it: they are
// mounted ahead of the auth gate, so no authenticated identity exists yet
// when the key is derived.
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	// gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}

// MemoryCounterStore is the single-process fallback when Redis is not
// configured.
type MemoryCounterStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	count     int
	windowEnd time.Time
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (s *MemoryCounterStore) Incr(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]

	if !ok || now.After(b.windowEnd) {
		b = &bucket{count: 0, windowEnd: now.Add(window)}
		s.buckets[key] = b
	}

	b.count++

	return b.count, b.windowEnd.Sub(now), nil
}

// RedisCounterStore shares counters across instances via INCR + EXPIRE.
type RedisCounterStore struct {
	client *redis.Client
}

func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func (s *RedisCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	count, err := s.client.Incr(ctx, key).Result()

	if err != nil {
		return 0, 0, err
	}

	// first hit in the window owns setting the expiry
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		return int(count), window, nil
	}

	ttl, err := s.client.TTL(ctx, key).Result()

	if err != nil || ttl < 0 {
		ttl = window
	}

	return int(count), ttl, nil
}
