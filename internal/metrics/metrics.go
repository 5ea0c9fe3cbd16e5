package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prepfeed_feed_loads_total",
		Help: "The total number of feed page loads",
	}, []string{"mode", "status"})

	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prepfeed_mutations_total",
		Help: "The total number of user mutations by outcome",
	}, []string{"kind", "outcome"})

	FeedItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prepfeed_feed_items",
		Help: "Posts currently held by the watched feed.",
	})

	APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prepfeed_api_request_latency_seconds",
		Help:    "Histogram of backend API request latency in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method", "path", "status_code"})
)
