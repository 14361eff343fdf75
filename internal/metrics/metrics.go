package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snaketunes_provider_requests_total",
			Help: "Catalog provider calls by provider, operation and outcome",
		},
		[]string{"provider", "operation", "outcome"}, // outcome: success, failure, rejected
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snaketunes_provider_request_duration_seconds",
			Help:    "Latency of catalog provider calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snaketunes_circuit_breaker_state",
			Help: "0 = closed, 1 = half-open, 2 = open",
		},
		[]string{"name"},
	)

	DetailChunks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snaketunes_detail_chunks_total",
			Help: "Detail lookup chunks by outcome",
		},
		[]string{"outcome"},
	)

	ClassifierRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snaketunes_classifier_rejections_total",
			Help: "Catalog items rejected by the content classifier, by reason",
		},
		[]string{"reason"},
	)

	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snaketunes_recommendations_total",
			Help: "Assembled recommendation results by backfill outcome",
		},
		[]string{"outcome"}, // official, backfill, latest, fallback, none, invalid
	)

	ResolverOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snaketunes_resolver_outcomes_total",
			Help: "Channel resolution outcomes",
		},
		[]string{"outcome"}, // resolved, cached, none
	)
)
