package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bsc_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	BookingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bsc_bookings_created_total",
			Help: "Pending bookings created",
		},
	)

	Settlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bsc_settlements_total",
			Help: "Settlement attempts by result",
		},
		[]string{"result"},
	)

	DuplicateSettlements = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bsc_duplicate_settlements_total",
			Help: "Webhook redeliveries short-circuited as no-ops",
		},
	)

	Compensations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bsc_compensations_total",
			Help: "Pending bookings rolled back after gateway failure",
		},
	)

	GatewayRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bsc_gateway_request_seconds",
			Help:    "Duration of payment gateway calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bsc_outbox_lag_seconds",
			Help: "Age of the oldest unpublished outbox record",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bsc_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
