package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a per-client token bucket. Buckets refill continuously
// at limit/60 tokens per second, so the limit is a per-minute rate rather
// than a fixed window.
type RateLimiter struct {
	store *sync.Map // map[string]*bucket
}

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
	mu         sync.Mutex
}

func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{store: &sync.Map{}}
	go rl.cleanupLoop()
	return rl
}

// cleanupLoop drops buckets idle for more than ten minutes so clients
// that disappear do not pin memory.
func (rl *RateLimiter) cleanupLoop() {
	for range time.Tick(time.Minute) {
		now := time.Now()
		rl.store.Range(func(key, val interface{}) bool {
			b := val.(*bucket)
			b.mu.Lock()
			if now.Sub(b.lastAccess) > 10*time.Minute {
				rl.store.Delete(key)
			}
			b.mu.Unlock()
			return true
		})
	}
}

func (rl *RateLimiter) Allow(key string, limit int) bool {
	now := time.Now()

	val, _ := rl.store.LoadOrStore(key, &bucket{
		tokens:     limit,
		lastRefill: now,
		lastAccess: now,
	})

	b := val.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastAccess = now

	refillRate := float64(limit) / 60.0
	refillTokens := int(now.Sub(b.lastRefill).Seconds() * refillRate)
	if refillTokens > 0 {
		b.tokens += refillTokens
		if b.tokens > limit {
			b.tokens = limit
		}
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Limit wraps a handler with a per-IP rate limit. class separates the
// webhook ingest budget from the admin API budget.
func (rl *RateLimiter) Limit(class string, perMinute int) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := fmt.Sprintf("%s:%s", ip, class)

			if !rl.Allow(key, perMinute) {
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}
