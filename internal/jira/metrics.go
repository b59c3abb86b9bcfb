package jira

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Endpoint labels used in metrics and errors.
const (
	EndpointSearch          = "search"
	EndpointBulkChangelog   = "changelog_bulk"
	EndpointIssueChangelog  = "changelog_issue"
	statusLabelNetworkError = "network_error"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jira_requests_total",
		Help: "Total Jira REST requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jira_request_duration_seconds",
		Help:    "Jira REST request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	throttleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jira_throttle_wait_seconds",
		Help:    "Time spent waiting on the client-side request limiter",
		Buckets: []float64{0, 0.05, 0.1, 0.5, 1, 5},
	})
)
