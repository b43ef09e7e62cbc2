package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/HammerMeetNail/giftcircle/internal/apperr"
	"github.com/HammerMeetNail/giftcircle/internal/logging"
)

// WindowCounter increments the counter for key in a fixed window and returns
// the new count.
type WindowCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Atomically INCR and set EXPIRE when the key is new.
var fixedWindowScript = redis.NewScript(`
	local current
	current = redis.call("INCR", KEYS[1])
	if current == 1 then
		redis.call("EXPIRE", KEYS[1], ARGV[1])
	end
	return current
`)

// RedisCounter shares fixed-window counts across instances.
type RedisCounter struct {
	client redis.Scripter
}

func NewRedisCounter(client redis.Scripter) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	ttlSeconds := int64(window.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}
	result, err := fixedWindowScript.Run(ctx, c.client, []string{key}, ttlSeconds).Result()
	if err != nil {
		return 0, err
	}
	// Lua numbers may come back as int64 or float64 depending on the driver.
	switch v := result.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("rate limit script returned %T", result)
	}
}

type RateLimiter struct {
	counter WindowCounter
	local   *localLimiters
	limit   int64
	window  time.Duration
	prefix  string
	message string
	keyFn   func(r *http.Request) string
	// failOpen controls behavior when Redis errors: when true, requests are allowed through.
	failOpen bool
}

type RateLimitOptions struct {
	Limit    int64
	Window   time.Duration
	Prefix   string
	Message  string
	KeyFn    func(r *http.Request) string
	FailOpen bool
}

// NewRateLimiter counts in counter when it is non-nil and falls back to
// per-process token buckets otherwise.
func NewRateLimiter(counter WindowCounter, opts RateLimitOptions) *RateLimiter {
	if opts.KeyFn == nil {
		opts.KeyFn = GetClientIP
	}
	if opts.Message == "" {
		opts.Message = "Too many requests from this IP, please try again later"
	}
	rl := &RateLimiter{
		counter:  counter,
		limit:    opts.Limit,
		window:   opts.Window,
		prefix:   opts.Prefix,
		message:  opts.Message,
		keyFn:    opts.KeyFn,
		failOpen: opts.FailOpen,
	}
	if counter == nil {
		rl.local = newLocalLimiters(opts.Limit, opts.Window)
	}
	return rl
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		keySuffix := rl.keyFn(r)
		if keySuffix == "" {
			keySuffix = GetClientIP(r)
		}
		key := rl.prefix + keySuffix

		if rl.counter == nil {
			if !rl.local.allow(key) {
				rl.reject(w)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		count, err := rl.counter.Incr(r.Context(), key, rl.window)
		if err != nil {
			logging.Error("Rate limit Redis error", map[string]interface{}{"error": err.Error()})
			if rl.failOpen {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, apperr.Unavailable("Rate limiting temporarily unavailable"))
			return
		}

		w.Header().Set("RateLimit-Limit", strconv.FormatInt(rl.limit, 10))
		w.Header().Set("RateLimit-Remaining", strconv.FormatInt(max(0, rl.limit-count), 10))
		if count > rl.limit {
			rl.reject(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) reject(w http.ResponseWriter) {
	w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
	writeError(w, apperr.RateLimited(rl.message))
}

// localLimiters approximates a fixed window with one token bucket per key:
// limit tokens refilled evenly over the window.
type localLimiters struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	window   time.Duration
	limiters map[string]*localEntry
	sweptAt  time.Time
	now      func() time.Time
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLocalLimiters(limit int64, window time.Duration) *localLimiters {
	if window <= 0 {
		window = time.Minute
	}
	return &localLimiters{
		limit:    rate.Limit(float64(limit) / window.Seconds()),
		burst:    int(limit),
		window:   window,
		limiters: map[string]*localEntry{},
		now:      time.Now,
	}
}

func (l *localLimiters) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.sweptAt) > l.window {
		for k, e := range l.limiters {
			if now.Sub(e.lastSeen) > l.window {
				delete(l.limiters, k)
			}
		}
		l.sweptAt = now
	}

	entry, ok := l.limiters[key]
	if !ok {
		entry = &localEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}
