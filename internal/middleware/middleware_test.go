package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/octobees/directory-leads/internal/config"
	"github.com/octobees/directory-leads/internal/metrics"
)

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(ContextKeyRequestID, "rid-123")

	err := Logging(logger)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	entries := logs.FilterField(zap.String("request_id", "rid-123")).All()
	if len(entries) != 1 {
		t.Fatalf("expected log entry with request id, got %d", len(entries))
	}
	if status, ok := entries[0].ContextMap()["status"].(int64); !ok || status != http.StatusOK {
		t.Fatalf("expected status field 200, got %v", entries[0].ContextMap()["status"])
	}

	// ensure errors are propagated and logged
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set(ContextKeyRequestID, "rid-456")
	expected := errors.New("boom")
	err = Logging(logger)(func(c echo.Context) error {
		return expected
	})(c)
	if logs.FilterField(zap.String("request_id", "rid-456")).FilterMessage("request failed").Len() != 1 {
		t.Fatalf("expected second log entry with new request id")
	}
	if !errors.Is(err, expected) {
		t.Fatalf("expected error to bubble up")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected error handler to write 500, got %d", rec.Code)
	}
}

func TestScrapeRateLimiter(t *testing.T) {
	cfg := config.RateLimitConfig{Requests: 1, Interval: time.Second}
	mw := ScrapeRateLimiter(cfg)

	e := echo.New()
	nextCalls := 0
	next := func(c echo.Context) error {
		nextCalls++
		return c.NoContent(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodPost, "/scrape", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/scrape")

	_ = mw(next)(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/scrape/export", nil)
	rec2 := httptest.NewRecorder()
	c2 := e.NewContext(req2, rec2)
	c2.SetPath("/scrape/export")
	_ = mw(next)(c2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected export request to share the bucket, got %d", rec2.Code)
	}

	if rec2.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After header, got %q", rec2.Header().Get("Retry-After"))
	}

	// another client has its own bucket
	req5 := httptest.NewRequest(http.MethodPost, "/scrape", nil)
	req5.RemoteAddr = "198.51.100.7:4321"
	rec5 := httptest.NewRecorder()
	c5 := e.NewContext(req5, rec5)
	c5.SetPath("/scrape")
	_ = mw(next)(c5)
	if rec5.Code != http.StatusOK {
		t.Fatalf("expected other client to pass, got %d", rec5.Code)
	}

	// Non-scrape path should bypass limiter.
	req3 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec3 := httptest.NewRecorder()
	c3 := e.NewContext(req3, rec3)
	c3.SetPath("/healthz")
	_ = mw(next)(c3)
	if rec3.Code != http.StatusOK {
		t.Fatalf("expected non-scrape request to pass")
	}

	// zero config should behave as passthrough
	mw = ScrapeRateLimiter(config.RateLimitConfig{})
	req4 := httptest.NewRequest(http.MethodPost, "/scrape", nil)
	rec4 := httptest.NewRecorder()
	c4 := e.NewContext(req4, rec4)
	c4.SetPath("/scrape")
	_ = mw(next)(c4)
	if rec4.Code != http.StatusOK {
		t.Fatalf("expected passthrough when limiter disabled")
	}
	if nextCalls != 4 {
		t.Fatalf("expected next handler to be invoked 4 times, got %d", nextCalls)
	}
}

func TestScrapeRateLimiter_IgnoresForwardedHeaders(t *testing.T) {
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	tests := map[string]func(e *echo.Echo){
		"no extractor":     func(e *echo.Echo) {},
		"direct extractor": func(e *echo.Echo) { e.IPExtractor = echo.ExtractIPDirect() },
	}
	for name, setup := range tests {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			setup(e)
			mw := ScrapeRateLimiter(config.RateLimitConfig{Requests: 1, Interval: time.Minute})
			allowed := 0
			for i := 0; i < 20; i++ {
				req := httptest.NewRequest(http.MethodPost, "/scrape", nil)
				req.RemoteAddr = "10.0.0.1:5555"
				req.Header.Set(echo.HeaderXForwardedFor, fmt.Sprintf("203.0.113.%d", i))
				req.Header.Set(echo.HeaderXRealIP, fmt.Sprintf("198.51.100.%d", i))
				rec := httptest.NewRecorder()
				c := e.NewContext(req, rec)
				c.SetPath("/scrape")
				_ = mw(next)(c)
				if rec.Code == http.StatusOK {
					allowed++
				}
			}
			if allowed != 1 {
				t.Fatalf("expected one request through for a single peer, got %d", allowed)
			}
		})
	}
}

func TestScrapeRateLimiter_RejectionEnvelope(t *testing.T) {
	mw := ScrapeRateLimiter(config.RateLimitConfig{Requests: 1, Interval: time.Minute})
	e := echo.New()
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	var rec *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		rec = httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/scrape", nil), rec)
		c.SetPath("/scrape")
		c.Set(ContextKeyRequestID, "rid-429")
		_ = mw(next)(c)
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["status"] != "error" || payload["message"] == "" || payload["request_id"] != "rid-429" {
		t.Fatalf("unexpected rejection body: %v", payload)
	}
}

func TestClientLimiters_EvictsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiters := newClientLimiters(rate.Every(time.Minute), 1, time.Minute)
	limiters.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		limiters.allow(fmt.Sprintf("203.0.113.%d", i))
	}
	if limiters.size() != 50 {
		t.Fatalf("expected 50 buckets, got %d", limiters.size())
	}
	if limiters.allow("203.0.113.1") {
		t.Fatalf("expected second request within the interval to be limited")
	}

	now = now.Add(30 * time.Second)
	limiters.allow("198.51.100.1")
	if limiters.size() != 51 {
		t.Fatalf("expected no eviction before the interval elapses, got %d", limiters.size())
	}

	now = now.Add(time.Minute)
	if !limiters.allow("203.0.113.1") {
		t.Fatalf("expected refilled bucket after idle interval")
	}
	if limiters.size() != 1 {
		t.Fatalf("expected idle buckets evicted, got %d", limiters.size())
	}
}

func TestRetryAfter(t *testing.T) {
	tests := map[time.Duration]string{
		0:                      "1",
		500 * time.Millisecond: "1",
		12 * time.Second:       "12",
		12*time.Second + 1:     "13",
	}
	for d, want := range tests {
		if got := retryAfter(d); got != want {
			t.Fatalf("retryAfter(%s) = %s, want %s", d, got, want)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	e := echo.New()
	handler := RequestID()

	t.Run("reuse incoming header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "incoming")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler(func(c echo.Context) error {
			if RequestIDFromContext(c) != "incoming" {
				t.Fatalf("expected request id to be stored")
			}
			return c.NoContent(http.StatusOK)
		})(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if rec.Header().Get("X-Request-ID") != "incoming" {
			t.Fatalf("expected response header to propagate request id")
		}
	})

	t.Run("generate when missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler(func(c echo.Context) error {
			rid := RequestIDFromContext(c)
			if rid == "" {
				t.Fatalf("expected generated request id")
			}
			return c.NoContent(http.StatusOK)
		})(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if rec.Header().Get("X-Request-ID") == "" {
			t.Fatalf("expected response header set")
		}
	})

	t.Run("replace unusable header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", strings.Repeat("x", 200))
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		_ = handler(func(c echo.Context) error { return nil })(c)
		if got := rec.Header().Get("X-Request-ID"); len(got) != 36 {
			t.Fatalf("expected generated uuid, got %q", got)
		}
	})
}

func TestValidRequestID(t *testing.T) {
	tests := map[string]bool{
		"abc-123":     true,
		"":            false,
		"has space":   false,
		"tab\tinside": false,
		"unicodé":     false,
	}
	for rid, want := range tests {
		if got := validRequestID(rid); got != want {
			t.Fatalf("validRequestID(%q) = %v, want %v", rid, got, want)
		}
	}
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if RequestIDFromContext(c) != "" {
		t.Fatalf("expected empty request id")
	}
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	mw := Metrics(m)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/scrape", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/scrape")
	_ = mw(func(c echo.Context) error { return c.NoContent(http.StatusAccepted) })(c)

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/scrape", "202")); got != 1 {
		t.Fatalf("expected one recorded request, got %v", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/missing", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	_ = mw(func(c echo.Context) error { return echo.ErrNotFound })(c)

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")); got != 1 {
		t.Fatalf("expected unmatched 404 to be recorded, got %v", got)
	}

	// nil metrics is a passthrough
	called := false
	_ = Metrics(nil)(func(c echo.Context) error { called = true; return nil })(c)
	if !called {
		t.Fatalf("expected passthrough when metrics disabled")
	}
}
