// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	// QueriesTotal counts terminal queries by statement kind and outcome.
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_terminal_queries_total",
			Help: "Total number of terminal queries evaluated",
		},
		[]string{"kind", "outcome"},
	)
	// QueryDuration is the time spent evaluating one terminal query.
	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "portfolio_terminal_query_duration_seconds",
			Help:    "Terminal query evaluation latency in seconds",
			Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01},
		},
	)
	// ContactTotal counts contact form submissions by outcome.
	ContactTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_contact_submissions_total",
			Help: "Total number of contact form submissions",
		},
		[]string{"outcome"},
	)
)

// Outcome labels a boolean result.
func Outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
