package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sanonone/wikihop/pkg/search"
)

// Metrics are registered on the default registry through promauto.

var (
	// HttpRequestsTotal counts requests by method, route and status code.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikihop_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// HttpRequestDuration measures server response time. Synchronous path
	// searches can run for minutes on a full table.
	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wikihop_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"method", "path"},
	)

	// SearchesTotal counts finished searches by outcome ("error" for failed runs).
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikihop_searches_total",
			Help: "Total number of finished searches by outcome",
		},
		[]string{"outcome"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wikihop_search_duration_seconds",
			Help:    "Wall time of finished searches in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	// TitlesExplored observes how many titles each search dequeued.
	TitlesExplored = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wikihop_search_titles_explored",
			Help:    "Number of titles dequeued per search",
			Buckets: prometheus.ExponentialBuckets(1, 10, 9),
		},
	)

	PrunesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikihop_search_prunes_total",
			Help: "Titles abandoned during redirect resolution, by reason",
		},
		[]string{"reason"},
	)

	// TableTitles tracks the number of titles held by in-memory tables.
	TableTitles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wikihop_table_titles",
			Help: "Number of titles loaded in memory",
		},
		[]string{"backend"},
	)
)

// SearchOptions returns engine options that feed the search metrics. They
// install the OnPrune and OnFinish hooks, replacing hooks set earlier.
func SearchOptions() []search.Option {
	return []search.Option{
		search.WithOnPrune(func(_ string, reason search.Reason) {
			PrunesTotal.WithLabelValues(reason.String()).Inc()
		}),
		search.WithOnFinish(ObserveSearch),
	}
}

// ObserveSearch records one finished search.
func ObserveSearch(res *search.Result, err error) {
	if err != nil || res == nil {
		SearchesTotal.WithLabelValues("error").Inc()
		return
	}
	SearchesTotal.WithLabelValues(res.Outcome.String()).Inc()
	SearchDuration.Observe(res.Stats.Elapsed.Seconds())
	TitlesExplored.Observe(float64(res.Stats.Explored))
}
