package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	// DefaultRate is the sustained number of requests per second per client.
	DefaultRate = 10
	// DefaultBurst is the number of requests a client may send at once.
	DefaultBurst = 20
	// DefaultIdleTTL is how long an unused client limiter is kept.
	DefaultIdleTTL = 5 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter provides rate limiting functionality.
// Limiters idle for longer than the idle TTL are evicted.
type RateLimiter struct {
	mu        sync.Mutex
	limits    map[string]*clientLimiter
	every     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter creates a new rate limiter allowing 10 requests per second
// with a burst of 20 for each key.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithLimit(DefaultRate, DefaultBurst)
}

// NewRateLimiterWithLimit creates a rate limiter with a custom rate and burst.
func NewRateLimiterWithLimit(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limits:  make(map[string]*clientLimiter),
		every:   rate.Every(time.Duration(float64(time.Second) / perSecond)),
		burst:   burst,
		idleTTL: DefaultIdleTTL,
		now:     time.Now,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		rl.sweep(now)
	}

	if entry, ok := rl.limits[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}
	limiter := rate.NewLimiter(rl.every, rl.burst)
	rl.limits[key] = &clientLimiter{limiter: limiter, lastSeen: now}
	return limiter
}

// sweep drops limiters not used within the idle TTL. Callers hold rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for key, entry := range rl.limits {
		if now.Sub(entry.lastSeen) >= rl.idleTTL {
			delete(rl.limits, key)
		}
	}
	rl.lastSweep = now
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limits)
}

// RateLimit rejects clients that exceed rl with 429.
// Clients are keyed by the echo IPExtractor, or by the connection's remote
// address when none is configured; forwarding headers are never trusted by default.
func RateLimit(rl *RateLimiter) echo.MiddlewareFunc {
	direct := echo.ExtractIPDirect()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := direct(c.Request())
			if c.Echo().IPExtractor != nil {
				ip = c.RealIP()
			}
			if !rl.Allow(ip) {
				c.Response().Header().Set("Retry-After", "1")
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Too many requests"})
			}
			return next(c)
		}
	}
}
