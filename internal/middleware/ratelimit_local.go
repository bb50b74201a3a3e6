package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxLocalLimiterKeys bounds the key table before stale entries are swept.
const maxLocalLimiterKeys = 10000

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalRateLimiter is a per-process token bucket per key, used when Redis is
// disabled. Each key may burst up to limit requests and refills at
// limit per window.
type LocalRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyLimiter
	every    rate.Limit
	burst    int
	window   time.Duration
	keyFn    func(r *http.Request) string
	now      func() time.Time
}

func NewLocalRateLimiter(limit int64, window time.Duration, keyFn func(r *http.Request) string) *LocalRateLimiter {
	rl := &LocalRateLimiter{
		limiters: map[string]*keyLimiter{},
		burst:    int(limit),
		window:   window,
		keyFn:    keyFn,
		now:      time.Now,
	}
	if limit > 0 && window > 0 {
		rl.every = rate.Every(window / time.Duration(limit))
	}
	return rl
}

func (rl *LocalRateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.limiters) >= maxLocalLimiterKeys {
		cutoff := now.Add(-2 * rl.window)
		for k, entry := range rl.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(rl.limiters, k)
			}
		}
	}

	entry, ok := rl.limiters[key]
	if !ok {
		entry = &keyLimiter{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (rl *LocalRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.burst <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := ""
		if rl.keyFn != nil {
			key = rl.keyFn(r)
		}
		if key == "" {
			key = "ip:" + GetClientIP(r)
		}

		if !rl.allow(key) {
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
