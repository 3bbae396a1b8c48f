// Package metrics exposes Prometheus collectors for crawls, the link store
// and the HTTP API.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "opendir"

// Fetch outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds all opendir collectors.
type Metrics struct {
	registry *prometheus.Registry

	ListingsFetched *prometheus.CounterVec
	LinksDiscovered *prometheus.CounterVec
	LinksStored     prometheus.Counter
	StoreErrors     prometheus.Counter
	CrawlsTotal     *prometheus.CounterVec
	CrawlDuration   prometheus.Histogram
	PagesPerCrawl   prometheus.Histogram
	SearchRequests  *prometheus.CounterVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := newMetrics(reg)
	m.registry = reg
	return m
}

// NewWithRegisterer registers the collectors on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ListingsFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_fetched_total",
			Help:      "Listing pages fetched, by outcome",
		}, []string{"outcome"}),
		LinksDiscovered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_discovered_total",
			Help:      "Classified file links found on listing pages, by category",
		}, []string{"category"}),
		LinksStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_stored_total",
			Help:      "File links newly written to the link store",
		}),
		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Failed link store writes",
		}),
		CrawlsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawls_total",
			Help:      "Finished crawls of a root listing, by result",
		}, []string{"result"}),
		CrawlDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_duration_seconds",
			Help:      "Wall time of a crawl of one root listing",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}),
		PagesPerCrawl: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_pages",
			Help:      "Listing pages fetched per crawl",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),
		SearchRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Search requests served, by category",
		}, []string{"category"}),
	}
}

// ObserveFetch counts one listing fetch.
func (m *Metrics) ObserveFetch(err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.ListingsFetched.WithLabelValues(outcome).Inc()
}

// AddDiscovered counts n links of the given category.
func (m *Metrics) AddDiscovered(category string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.LinksDiscovered.WithLabelValues(category).Add(float64(n))
}

// ObserveStore counts the result of one batched store write.
func (m *Metrics) ObserveStore(inserted int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.StoreErrors.Inc()
		return
	}
	m.LinksStored.Add(float64(inserted))
}

// ObserveCrawl records a finished crawl. result is "completed", "partial"
// or "cancelled".
func (m *Metrics) ObserveCrawl(result string, pages int, d time.Duration) {
	if m == nil {
		return
	}
	m.CrawlsTotal.WithLabelValues(result).Inc()
	m.CrawlDuration.Observe(d.Seconds())
	m.PagesPerCrawl.Observe(float64(pages))
}

// ObserveSearch counts one search request.
func (m *Metrics) ObserveSearch(category string) {
	if m == nil {
		return
	}
	m.SearchRequests.WithLabelValues(category).Inc()
}

// Handler returns the /metrics handler. Metrics created with
// NewWithRegisterer serve the default gatherer.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
