package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesRequestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gocab",
		Name:      "rides_requested_total",
		Help:      "Total number of ride requests accepted",
	})

	FareTotal = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gocab",
		Name:      "fare_total",
		Help:      "Distribution of total fares quoted",
		Buckets:   prometheus.ExponentialBuckets(100, 2, 10),
	})

	SessionsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gocab",
		Name:      "sessions_connected",
		Help:      "Number of live realtime sessions",
	})

	MessagesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gocab",
		Name:      "messages_sent_total",
		Help:      "Total chat messages persisted",
	})

	RideStatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gocab",
		Name:      "ride_status_transitions_total",
		Help:      "Ride status transitions applied",
	}, []string{"status"})
)
