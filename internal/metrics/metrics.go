// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Donations
	DonationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foundation_donation_outcomes_total",
			Help: "Donation attempts by payment method and outcome",
		},
		[]string{"method", "outcome"},
	)

	DonationQuotes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foundation_donation_quotes_total",
			Help: "Prepared transfer quotes by payment method and chain",
		},
		[]string{"method", "chain"},
	)

	BankTransferIntents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foundation_bank_transfer_intents_total",
			Help: "Bank-transfer intents by outcome",
		},
		[]string{"outcome"},
	)

	// Acknowledgements
	AcknowledgementOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foundation_acknowledgement_outcomes_total",
			Help: "Acknowledgement submissions by outcome",
		},
		[]string{"outcome"},
	)

	// Contact form
	ContactOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foundation_contact_outcomes_total",
			Help: "Contact form submissions by outcome",
		},
		[]string{"outcome"},
	)

	WebhookFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foundation_webhook_failures_total",
		Help: "Notification webhook deliveries that failed",
	})

	// Content feeds
	ContentCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foundation_content_cache_lookups_total",
			Help: "Content feed cache lookups by kind and result",
		},
		[]string{"kind", "result"},
	)

	ContentFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foundation_content_fetch_duration_seconds",
			Help:    "CMS fetch latency per content kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foundation_http_requests_total",
			Help: "HTTP requests by route pattern, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foundation_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foundation_rate_limited_total",
			Help: "Requests rejected by the per-client rate limit",
		},
		[]string{"route"},
	)

	// Database
	SQLStatements = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foundation_sql_statement_duration_seconds",
			Help:    "Inline SQL latency by audit marker and result",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"marker", "result"},
	)

	DBPoolTotalConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "foundation_db_pool_total_connections",
		Help: "Connections currently held by the pool",
	})

	DBPoolIdleConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "foundation_db_pool_idle_connections",
		Help: "Idle connections in the pool",
	})

	DBStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "foundation_db_status",
		Help: "Database health (1=healthy, 0=unhealthy)",
	})
)
