package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"repricer/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ── Fixed-window limiter ──────────────────────────────────────────────────────

// windowCounter counts hits for a key inside the current window and reports
// the running count together with the window end.
type windowCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Time, error)
}

// memoryCounter keeps windows in process memory. Expired windows are purged
// lazily on every purgeEvery-th hit.
type memoryCounter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	hits    int
	now     func() time.Time
}

type windowEntry struct {
	count     int64
	windowEnd time.Time
}

const purgeEvery = 1024

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{entries: make(map[string]*windowEntry), now: time.Now}
}

func (m *memoryCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.hits++
	if m.hits%purgeEvery == 0 {
		m.purgeLocked(now)
	}

	entry, ok := m.entries[key]
	if !ok || now.After(entry.windowEnd) {
		entry = &windowEntry{windowEnd: now.Add(window)}
		m.entries[key] = entry
	}
	entry.count++
	return entry.count, entry.windowEnd, nil
}

func (m *memoryCounter) purgeLocked(now time.Time) {
	purged := 0
	for key, entry := range m.entries {
		if now.After(entry.windowEnd) {
			delete(m.entries, key)
			purged++
		}
	}
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(m.entries)).Msg("rate limiter entries purged")
	}
}

// redisCounter shares windows across replicas using INCR + PEXPIRE.
type redisCounter struct {
	rdb *redis.Client
}

func (r *redisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	key = "ratelimit:" + key
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.PExpire(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, err
	}
	return incr.Val(), time.Now().Add(ttl.Val()), nil
}

// RateLimiter is a per-client-IP fixed-window limiter. With a Redis client the
// windows are shared by every replica; otherwise they live in memory.
type RateLimiter struct {
	name    string
	limit   int64
	window  time.Duration
	counter windowCounter
	local   *memoryCounter
}

// NewRateLimiter builds a limiter allowing limit requests per window. rdb may
// be nil.
func NewRateLimiter(name string, limit int, window time.Duration, rdb *redis.Client) *RateLimiter {
	rl := &RateLimiter{
		name:   name,
		limit:  int64(limit),
		window: window,
		local:  newMemoryCounter(),
	}
	rl.counter = rl.local
	if rdb != nil {
		rl.counter = &redisCounter{rdb: rdb}
	}
	return rl
}

// Handler returns the Gin middleware. A non-positive limit disables limiting.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}

		key := rl.name + ":" + c.ClientIP()
		count, windowEnd, err := rl.counter.Hit(c.Request.Context(), key, rl.window)
		if err != nil {
			// Redis unavailable: degrade to this replica's own window.
			log.Warn().Err(err).Str("limiter", rl.name).Msg("rate limiter backend failed, using local window")
			count, windowEnd, _ = rl.local.Hit(c.Request.Context(), key, rl.window)
		}

		if count > rl.limit {
			retry := int(time.Until(windowEnd).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.WithCode("rate_limited", "too many requests, try again later"))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter limits login and registration attempts per IP per minute.
func LoginRateLimiter(perMinute int, rdb *redis.Client) gin.HandlerFunc {
	return NewRateLimiter("login", perMinute, time.Minute, rdb).Handler()
}
