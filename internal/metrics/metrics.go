// Package metrics holds Prometheus instruments used across the gateway.
// All collectors are registered with the global registry, so mounting
// promhttp.Handler() in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Gateway requests by resource, action, and response status.",
		}, []string{"resource", "action", "status"})

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Gateway request latency by resource and action.",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource", "action"})

	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_auth_failures_total",
			Help: "Rejected credential checks by reason.",
		}, []string{"reason"})

	KeyTouchErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_key_touch_errors_total",
			Help: "Failed last-used timestamp writes.",
		})

	SubmissionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_form_submissions_total",
			Help: "Cumulative number of stored form submissions.",
		})

	PanicsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_panics_total",
			Help: "Panics recovered at the gateway boundary.",
		})
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthFailuresTotal,
		KeyTouchErrorsTotal,
		SubmissionsTotal,
		PanicsTotal,
	)
}
