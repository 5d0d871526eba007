package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/octobees/directory-leads/internal/config"
)

// scrapePathPrefix selects the routes guarded by ScrapeRateLimiter.
const scrapePathPrefix = "/scrape"

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters hands out one token bucket per client address. A bucket idle for
// idle is full again, so it is dropped and recreated on the next request.
type clientLimiters struct {
	mu        sync.Mutex
	every     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	lastSweep time.Time
	buckets   map[string]*clientBucket
}

func newClientLimiters(every rate.Limit, burst int, idle time.Duration) *clientLimiters {
	return &clientLimiters{
		every:   every,
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		buckets: make(map[string]*clientBucket),
	}
}

func (l *clientLimiters) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		for key, bucket := range l.buckets {
			if now.Sub(bucket.lastSeen) >= l.idle {
				delete(l.buckets, key)
			}
		}
		l.lastSweep = now
	}

	bucket, ok := l.buckets[client]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(l.every, l.burst)}
		l.buckets[client] = bucket
	}
	bucket.lastSeen = now
	return bucket.limiter.AllowN(now, 1)
}

func (l *clientLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// ScrapeRateLimiter throttles /scrape and /scrape/export per client IP. Both routes
// draw from the same bucket since each export runs a full scrape.
func ScrapeRateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Requests <= 0 || cfg.Interval <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	perRequest := cfg.Interval / time.Duration(cfg.Requests)
	if perRequest <= 0 {
		perRequest = time.Second
	}
	limiters := newClientLimiters(rate.Every(perRequest), cfg.Requests, cfg.Interval)
	return scrapeRateLimiter(limiters, perRequest)
}

func scrapeRateLimiter(limiters *clientLimiters, perRequest time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !strings.HasPrefix(c.Path(), scrapePathPrefix) {
				return next(c)
			}
			if !limiters.allow(clientIP(c)) {
				c.Response().Header().Set("Retry-After", retryAfter(perRequest))
				body := map[string]string{"status": "error", "message": "scrape rate limit exceeded"}
				if rid := RequestIDFromContext(c); rid != "" {
					body["request_id"] = rid
				}
				return c.JSON(http.StatusTooManyRequests, body)
			}
			return next(c)
		}
	}
}

// clientIP returns the caller address. Forwarding headers are honoured only when
// the server has an IPExtractor configured for its proxies.
func clientIP(c echo.Context) string {
	if c.Echo().IPExtractor != nil {
		return c.RealIP()
	}
	return echo.ExtractIPDirect()(c.Request())
}

// retryAfter rounds d up to whole seconds for the Retry-After header.
func retryAfter(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
