// Package observability registers the service's Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "transport"

var (
	TripTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "trip_transitions_total", Help: "Trip state transitions by target state"},
		[]string{"to"},
	)
	CounterOffers = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "counter_offers_total", Help: "Counter-offer outcomes"},
		[]string{"outcome"},
	)
	PendingRequests = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pending_requests", Help: "Requests waiting in the queue"})

	StoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_seconds",
			Help:      "Latency of load/save against the record store",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op", "result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
