package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

type tokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

func newTokenBucket(rate float64, burst int) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: rate,
		lastRefill: time.Now(),
	}
}

func (b *tokenBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// RateLimit returns per-client-IP token bucket middleware. Buckets for idle
// clients are dropped after an hour.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	type entry struct {
		bucket   *tokenBucket
		lastSeen time.Time
	}

	var mu sync.Mutex
	buckets := make(map[string]*entry)

	cleanup := func() {
		cutoff := time.Now().Add(-time.Hour)
		for ip, e := range buckets {
			if e.lastSeen.Before(cutoff) {
				delete(buckets, ip)
			}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			mu.Lock()
			e, ok := buckets[ip]
			if !ok {
				e = &entry{bucket: newTokenBucket(cfg.RequestsPerSecond, cfg.BurstSize)}
				buckets[ip] = e
			}
			e.lastSeen = time.Now()
			if len(buckets) > 10000 {
				cleanup()
			}
			mu.Unlock()

			if !e.bucket.allow() {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
