package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Failure policies understood by the scrape pipeline.
const (
	FailurePolicyAbort   = "abort"
	FailurePolicyIsolate = "isolate"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// Config aggregates application-wide configuration values.
type Config struct {
	Port             string
	DirectoryBaseURL string
	DirectoryTimeout time.Duration
	RateLimitScrape  RateLimitConfig
	MaxPages         int
	CitiesFile       string
	Cities           []string
	FailurePolicy    string
	NormalizePhones  bool
	PhoneRegion      string
	LogLevel         string
}

// Load reads configuration from environment variables and applies sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DirectoryBaseURL: strings.TrimRight(getEnv("DIRECTORY_BASE_URL", "https://www.paginegialle.it"), "/"),
		DirectoryTimeout: parseDuration(getEnv("DIRECTORY_TIMEOUT", "30s")),
		CitiesFile:       os.Getenv("CITIES_FILE"),
		FailurePolicy:    strings.ToLower(getEnv("SCRAPE_FAILURE_POLICY", FailurePolicyAbort)),
		NormalizePhones:  parseBool(getEnv("NORMALIZE_PHONES", "false")),
		PhoneRegion:      strings.ToUpper(getEnv("PHONE_REGION", "IT")),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	rl, err := parseRateLimit(getEnv("RATE_LIMIT_SCRAPE", "5/min"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SCRAPE value: %w", err)
	}
	cfg.RateLimitScrape = rl

	maxPages, err := strconv.Atoi(getEnv("MAX_PAGES", "10"))
	if err != nil || maxPages < 1 {
		return nil, fmt.Errorf("invalid MAX_PAGES value: %q", os.Getenv("MAX_PAGES"))
	}
	cfg.MaxPages = maxPages

	if !ValidFailurePolicy(cfg.FailurePolicy) {
		return nil, fmt.Errorf("invalid SCRAPE_FAILURE_POLICY value: %q", cfg.FailurePolicy)
	}

	cities := DefaultCities()
	if cfg.CitiesFile != "" {
		cities, err = LoadCities(cfg.CitiesFile)
		if err != nil {
			return nil, err
		}
	}
	cfg.Cities = cities

	return cfg, nil
}

// ValidFailurePolicy reports whether policy names a supported failure policy.
func ValidFailurePolicy(policy string) bool {
	return policy == FailurePolicyAbort || policy == FailurePolicyIsolate
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseDuration(input string) time.Duration {
	d, err := time.ParseDuration(input)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

func parseBool(input string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(input))
	if err != nil {
		return false
	}
	return b
}
