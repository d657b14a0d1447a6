package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ListingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listings_created_total",
		Help: "Total number of listings added by the operator",
	})

	ListingsReservedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listings_reserved_total",
		Help: "Total number of listings reserved at checkout",
	})

	ListingsReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listings_released_total",
		Help: "Total number of listings released to buyer inboxes",
	})

	CheckoutSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_skipped_total",
		Help: "Total number of checkout ids skipped because the listing was not available",
	})

	ReservationsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_expired_total",
		Help: "Total number of reservations reverted by the timeout sweep",
	})

	SweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweep_runs_total",
		Help: "Total number of reservation sweep executions",
	})

	SweepLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sweep_latency_seconds",
		Help:    "Latency of reservation sweep executions",
		Buckets: prometheus.DefBuckets,
	})

	PersistSaveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persist_save_total",
		Help: "Total number of persistence saves",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
