// Package metrics holds the prometheus collectors shared across the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moviefinder",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "moviefinder",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.3, 0.5, 1, 2, 5},
	}, []string{"method", "route"})

	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moviefinder",
		Name:      "upstream_requests_total",
		Help:      "Requests to external movie APIs by upstream and result.",
	}, []string{"upstream", "result"})

	UpstreamRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "moviefinder",
		Name:      "upstream_request_duration_seconds",
		Help:      "External movie API request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10},
	}, []string{"upstream"})

	SearchCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "moviefinder",
		Name:      "search_cache_hits_total",
		Help:      "Searches answered from a session result cache.",
	})

	SearchCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "moviefinder",
		Name:      "search_cache_misses_total",
		Help:      "Searches that had to go upstream.",
	})

	SearchesCancelled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "moviefinder",
		Name:      "searches_cancelled_total",
		Help:      "Searches superseded by a newer search before they resolved.",
	})

	ActiveSearchSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "moviefinder",
		Name:      "search_sessions_active",
		Help:      "Search sessions currently held in memory.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		SearchCacheHits,
		SearchCacheMisses,
		SearchesCancelled,
		ActiveSearchSessions,
	)
}
