// Package metrics exposes Prometheus collectors for the crawl and ingest
// pipelines.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetchedTotal     *prometheus.CounterVec
	fetchErrorsTotal      prometheus.Counter
	documentsIndexedTotal prometheus.Counter
	upsertRetriesTotal    prometheus.Counter
	throttleDelaySeconds  prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviewharvest_pages_fetched_total",
				Help: "Total number of pages fetched, labeled by crawl phase.",
			},
			[]string{"phase"},
		)

		fetchErrorsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "reviewharvest_fetch_errors_total",
				Help: "Total number of failed page fetches.",
			},
		)

		documentsIndexedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "reviewharvest_documents_indexed_total",
				Help: "Total number of review documents upserted into the search index.",
			},
		)

		upsertRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "reviewharvest_upsert_retries_total",
				Help: "Total number of retried search index writes.",
			},
		)

		throttleDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reviewharvest_throttle_delay_seconds",
				Help:    "Time spent waiting on the fetch rate limiter.",
				Buckets: prometheus.DefBuckets,
			},
		)
	})
}

// ObserveFetch records one fetch attempt for the given crawl phase.
func ObserveFetch(phase string, err error) {
	if pagesFetchedTotal == nil {
		return
	}
	if err != nil {
		fetchErrorsTotal.Inc()
		return
	}
	pagesFetchedTotal.WithLabelValues(phase).Inc()
}

// ObserveDocumentIndexed records one successful index upsert.
func ObserveDocumentIndexed() {
	if documentsIndexedTotal == nil {
		return
	}
	documentsIndexedTotal.Inc()
}

// ObserveUpsertRetry records one failed index write that will be retried.
func ObserveUpsertRetry() {
	if upsertRetriesTotal == nil {
		return
	}
	upsertRetriesTotal.Inc()
}

// ObserveThrottleDelay records time spent waiting on the fetch rate limiter.
func ObserveThrottleDelay(d time.Duration) {
	if throttleDelaySeconds == nil {
		return
	}
	throttleDelaySeconds.Observe(d.Seconds())
}
