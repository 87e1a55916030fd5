// internal/metrics/metrics.go

// Package metrics declares the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discovery_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "discovery_http_requests_in_flight",
		Help: "HTTP requests currently being served.",
	})

	// EngineOperations counts engine calls by operation and outcome (ok, error).
	EngineOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_engine_operations_total",
			Help: "Discovery engine operations by name and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	EngineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discovery_engine_operation_duration_seconds",
			Help:    "Discovery engine operation latency.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation"},
	)

	EngineResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discovery_engine_results",
			Help:    "Number of results returned per engine operation.",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 500, 1000},
		},
		[]string{"operation"},
	)

	RecommendationFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_recommendation_fallbacks_total",
		Help: "Recommendations served from the popularity ranking because the member had no history.",
	})

	RankingDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_ranking_dropped_total",
		Help: "Ranked book ids dropped because the book no longer exists.",
	})

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "discovery_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions.",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result (success, failure, rejected).",
		},
		[]string{"name", "result"},
	)
)
