package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values used across collectors.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeKept     = "kept"
	OutcomeFiltered = "filtered"
)

// Metrics holds the prometheus collectors for the scrape pipeline and HTTP layer.
type Metrics struct {
	PagesFetched        *prometheus.CounterVec
	Listings            *prometheus.CounterVec
	FetchDuration       prometheus.Histogram
	ScrapeRuns          *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "directory_pages_fetched_total",
			Help: "Directory search pages requested, by outcome.",
		}, []string{"outcome"}),
		Listings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "directory_listings_total",
			Help: "Directory records seen, kept or filtered out by city.",
		}, []string{"outcome"}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "directory_fetch_duration_seconds",
			Help:    "Duration of directory search requests.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ScrapeRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scrape_runs_total",
			Help: "Scrape pipeline runs, by outcome.",
		}, []string{"outcome"}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// ObservePage records one directory page fetch. Nil receivers are no-ops.
func (m *Metrics) ObservePage(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(duration.Seconds())
	if err != nil {
		m.PagesFetched.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	m.PagesFetched.WithLabelValues(OutcomeSuccess).Inc()
}

// AddListings records how many records were kept and filtered on a page.
func (m *Metrics) AddListings(kept, filtered int) {
	if m == nil {
		return
	}
	m.Listings.WithLabelValues(OutcomeKept).Add(float64(kept))
	m.Listings.WithLabelValues(OutcomeFiltered).Add(float64(filtered))
}

// ObserveRun records the outcome of a pipeline run.
func (m *Metrics) ObserveRun(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ScrapeRuns.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	m.ScrapeRuns.WithLabelValues(OutcomeSuccess).Inc()
}
