package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhooksReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhooks_received_total",
		Help: "Total number of provider webhook notifications received",
	})

	WebhookSignatureFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_signature_failures_total",
		Help: "Total number of webhook notifications with an invalid MAC",
	})

	WebhookProcessingFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_processing_failures_total",
		Help: "Total number of webhook notifications that failed internal processing",
	}, []string{"stage"})

	WebhookDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_duplicates_total",
		Help: "Total number of replayed webhook notifications ignored",
	})

	OrdersPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_paid_total",
		Help: "Total number of orders marked paid",
	})

	ProductsSyncedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "products_synced_total",
		Help: "Catalog sync outcomes per product",
	}, []string{"outcome"})

	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_sync_runs_total",
		Help: "Total number of catalog sync runs",
	}, []string{"result"})

	SyncRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_sync_run_duration_seconds",
		Help:    "Duration of catalog sync runs",
		Buckets: prometheus.DefBuckets,
	})

	PaymentCreationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_creations_total",
		Help: "Total number of payment transactions created at the provider",
	}, []string{"result"})

	TerminalCacheRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terminal_cache_refresh_total",
		Help: "Parcel terminal cache refresh attempts",
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
