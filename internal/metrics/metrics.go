// Package metrics exposes the Prometheus instruments of the newsletter
// service and the HTTP plumbing to record and serve them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "newsletter"

const (
	LabelMethod = "method"
	LabelRoute  = "route"
	LabelStatus = "status"
	LabelResult = "result"
)

// Login results.
const (
	LoginSuccess   = "success"
	LoginInvalid   = "invalid"
	LoginThrottled = "throttled"
	LoginError     = "error"
)

// Subscription and delivery outcomes.
const (
	StatusCreated   = "created"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
	StatusSent      = "sent"
	StatusQueued    = "queued"
	StatusFailed    = "failed"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code",
		},
		[]string{LabelMethod, LabelRoute, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelRoute},
	)

	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "login_attempts_total",
			Help:      "Credential checks by result, across form login and basic auth",
		},
		[]string{LabelResult},
	)

	OffloadInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "offload_tasks_in_flight",
			Help:      "Password hashing tasks currently running on the worker pool",
		},
	)

	OffloadQueueWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "offload_queue_wait_seconds",
			Help:      "Time a hashing task waited for a free worker",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	SubscriptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "subscriptions_total",
			Help:      "Subscription lifecycle events",
		},
		[]string{LabelStatus},
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "newsletter_deliveries_total",
			Help:      "Newsletter deliveries per recipient by outcome",
		},
		[]string{LabelStatus},
	)
)

func RecordLogin(result string) {
	LoginAttemptsTotal.WithLabelValues(result).Inc()
}

func RecordSubscription(status string) {
	SubscriptionsTotal.WithLabelValues(status).Inc()
}

func RecordDelivery(status string) {
	DeliveriesTotal.WithLabelValues(status).Inc()
}
