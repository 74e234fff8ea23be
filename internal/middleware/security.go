package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MaxBodySize is the largest request body accepted by the API.
// Comment payloads are small; anything above this is abuse.
const MaxBodySize = 1 << 20 // 1MB

// SecurityHeadersMiddleware adds standard security headers to every response.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		// JSON API only: nothing should ever be rendered or framed
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		next.ServeHTTP(w, r)
	})
}

// LimitBodyMiddleware caps the request body size to prevent memory exhaustion
func LimitBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

// visitor tracks request timestamps for a single client IP
type visitor struct {
	timestamps []time.Time
}

// RateLimiter implements a sliding-window rate limiter keyed by client IP
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	cleanup  time.Duration
	lastGC   time.Time
}

// NewRateLimiter creates a rate limiter allowing rate requests per window
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		cleanup:  2 * window,
	}
}

// Allow reports whether the client identified by ip may make another request
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.gc(now)

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{}
		rl.visitors[ip] = v
	}

	// Drop timestamps outside the window
	cutoff := now.Add(-rl.window)
	kept := v.timestamps[:0]
	for _, ts := range v.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	v.timestamps = kept

	if len(v.timestamps) >= rl.rate {
		return false
	}

	v.timestamps = append(v.timestamps, now)
	return true
}

// gc removes visitors with no recent activity. Called with the lock held.
func (rl *RateLimiter) gc(now time.Time) {
	if now.Sub(rl.lastGC) < rl.cleanup {
		return
	}
	rl.lastGC = now

	cutoff := now.Add(-rl.window)
	for ip, v := range rl.visitors {
		active := false
		for _, ts := range v.timestamps {
			if ts.After(cutoff) {
				active = true
				break
			}
		}
		if !active {
			delete(rl.visitors, ip)
		}
	}
}

// RateLimitConfig holds per-endpoint-class rate limiters
type RateLimitConfig struct {
	// AnalyzeLimiter covers the comment analysis endpoint, the hottest path
	AnalyzeLimiter *RateLimiter

	// APILimiter covers the remaining /api/ endpoints
	APILimiter *RateLimiter

	// GlobalLimiter covers everything else
	GlobalLimiter *RateLimiter
}

// NewDefaultRateLimitConfig returns production rate limits
func NewDefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		AnalyzeLimiter: NewRateLimiter(300, time.Minute),
		APILimiter:     NewRateLimiter(120, time.Minute),
		GlobalLimiter:  NewRateLimiter(60, time.Minute),
	}
}

// RateLimitMiddleware applies per-IP rate limiting, choosing the limiter by path
func RateLimitMiddleware(config *RateLimitConfig) func(http.Handler) http.Handler {
	if config == nil {
		config = NewDefaultRateLimitConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var limiter *RateLimiter
			switch {
			case strings.HasPrefix(r.URL.Path, "/api/shield/analyze"):
				limiter = config.AnalyzeLimiter
			case strings.HasPrefix(r.URL.Path, "/api/"):
				limiter = config.APILimiter
			default:
				limiter = config.GlobalLimiter
			}

			if !limiter.Allow(GetClientIP(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(int(limiter.window.Seconds())))
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
