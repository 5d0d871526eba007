package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/octobees/directory-leads/internal/config"
	"github.com/octobees/directory-leads/internal/directory"
	"github.com/octobees/directory-leads/internal/entity"
	"github.com/octobees/directory-leads/internal/metrics"
)

var (
	// ErrInvalidPageCount is returned when fewer than one page is requested.
	ErrInvalidPageCount = errors.New("page count must be at least 1")
	// ErrEmptyCategory is returned when the category is blank.
	ErrEmptyCategory = errors.New("category is required")
	// ErrUnknownFailurePolicy is returned for policies other than abort and isolate.
	ErrUnknownFailurePolicy = errors.New("unknown failure policy")
)

// Query describes one pipeline invocation.
type Query struct {
	Category string
	Cities   []string
	Pages    int
	// FailurePolicy overrides the service default when set.
	FailurePolicy string
}

// PageFailure records a page that could not be fetched under the isolate policy.
type PageFailure struct {
	City  string `json:"city"`
	Page  int    `json:"page"`
	URL   string `json:"url"`
	Error string `json:"error"`
}

// CityResult is the rendered table for one requested city.
type CityResult struct {
	City     string        `json:"city"`
	Table    *entity.Table `json:"table"`
	Failures []PageFailure `json:"failures,omitempty"`
}

// ScrapeResult holds per-city tables in the order the cities were requested.
type ScrapeResult struct {
	RunID    uuid.UUID    `json:"run_id"`
	Category string       `json:"category"`
	Pages    int          `json:"pages"`
	Cities   []CityResult `json:"cities"`
}

// Table returns the table scraped for city.
func (r *ScrapeResult) Table(city string) (*entity.Table, bool) {
	if r == nil {
		return nil, false
	}
	for _, res := range r.Cities {
		if res.City == city {
			return res.Table, true
		}
	}
	return nil, false
}

// Tables returns the result as a city to table mapping.
func (r *ScrapeResult) Tables() map[string]*entity.Table {
	tables := make(map[string]*entity.Table)
	if r == nil {
		return tables
	}
	for _, res := range r.Cities {
		tables[res.City] = res.Table
	}
	return tables
}

// ScrapeService runs the paginated fetch-and-normalize pipeline.
type ScrapeService struct {
	searcher      directory.Searcher
	logger        *zap.Logger
	metrics       *metrics.Metrics
	failurePolicy string
	phones        *PhoneFormatter
}

// ScrapeOption configures optional dependencies.
type ScrapeOption func(*ScrapeService)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) ScrapeOption {
	return func(s *ScrapeService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records pipeline metrics on m.
func WithMetrics(m *metrics.Metrics) ScrapeOption {
	return func(s *ScrapeService) {
		s.metrics = m
	}
}

// WithFailurePolicy sets the default failure policy.
func WithFailurePolicy(policy string) ScrapeOption {
	return func(s *ScrapeService) {
		s.failurePolicy = strings.ToLower(strings.TrimSpace(policy))
	}
}

// WithPhoneFormatter enables E.164 formatting of phone columns.
func WithPhoneFormatter(f *PhoneFormatter) ScrapeOption {
	return func(s *ScrapeService) {
		s.phones = f
	}
}

// NewScrapeService builds a pipeline on top of a directory searcher.
func NewScrapeService(searcher directory.Searcher, opts ...ScrapeOption) *ScrapeService {
	s := &ScrapeService{
		searcher:      searcher,
		logger:        zap.NewNop(),
		failurePolicy: config.FailurePolicyAbort,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run scrapes pageCount pages for every city using the default failure policy.
func (s *ScrapeService) Run(ctx context.Context, category string, cities []string, pageCount int) (*ScrapeResult, error) {
	return s.RunQuery(ctx, Query{Category: category, Cities: cities, Pages: pageCount})
}

// RunQuery executes the pipeline. Cities and pages are fetched strictly in order;
// under the abort policy the first failing page fails the whole run.
func (s *ScrapeService) RunQuery(ctx context.Context, q Query) (result *ScrapeResult, err error) {
	if strings.TrimSpace(q.Category) == "" {
		return nil, ErrEmptyCategory
	}
	if q.Pages < 1 {
		return nil, ErrInvalidPageCount
	}
	policy := strings.ToLower(strings.TrimSpace(q.FailurePolicy))
	if policy == "" {
		policy = s.failurePolicy
	}
	if !config.ValidFailurePolicy(policy) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFailurePolicy, policy)
	}

	runID := uuid.New()
	logger := s.logger.With(
		zap.String("run_id", runID.String()),
		zap.String("category", q.Category),
		zap.String("failure_policy", policy),
	)
	defer func() { s.metrics.ObserveRun(err) }()

	started := time.Now()
	result = &ScrapeResult{
		RunID:    runID,
		Category: q.Category,
		Pages:    q.Pages,
		Cities:   make([]CityResult, 0, len(q.Cities)),
	}

	seen := make(map[string]struct{}, len(q.Cities))
	listings := 0
	for _, city := range q.Cities {
		if _, dup := seen[city]; dup {
			continue
		}
		seen[city] = struct{}{}

		cityResult, err := s.scrapeCity(ctx, logger, policy, q.Category, city, q.Pages)
		if err != nil {
			logger.Error("scrape run aborted", zap.String("city", city), zap.Error(err))
			return nil, err
		}
		listings += cityResult.Table.Len()
		result.Cities = append(result.Cities, cityResult)
	}

	logger.Info("scrape run completed",
		zap.Int("cities", len(result.Cities)),
		zap.Int("pages", q.Pages),
		zap.Int("listings", listings),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (s *ScrapeService) scrapeCity(ctx context.Context, logger *zap.Logger, policy, category, city string, pages int) (CityResult, error) {
	set := NewCityResultSet()
	var failures []PageFailure

	for page := 1; page <= pages; page++ {
		start := time.Now()
		resp, err := s.searcher.Search(ctx, category, city, page)
		s.metrics.ObservePage(time.Since(start), err)
		if err != nil {
			if policy == config.FailurePolicyAbort || ctx.Err() != nil {
				return CityResult{}, fmt.Errorf("scrape %s page %d: %w", city, page, err)
			}
			logger.Warn("directory page skipped",
				zap.String("city", city),
				zap.Int("page", page),
				zap.Error(err),
			)
			failures = append(failures, PageFailure{
				City:  city,
				Page:  page,
				URL:   s.searcher.SearchURL(category, city, page),
				Error: err.Error(),
			})
			continue
		}

		kept, filtered, replaced := 0, 0, 0
		for _, record := range resp.Results() {
			if !directory.MatchesCity(record, city) {
				filtered++
				continue
			}
			listing := directory.ExtractListing(record)
			s.phones.Apply(&listing)
			if set.Put(listing.Name, listing) {
				replaced++
			}
			kept++
		}
		s.metrics.AddListings(kept, filtered)
		logger.Debug("directory page processed",
			zap.String("city", city),
			zap.Int("page", page),
			zap.Int("kept", kept),
			zap.Int("filtered", filtered),
			zap.Int("replaced", replaced),
		)
	}

	return CityResult{City: city, Table: set.Table(), Failures: failures}, nil
}
