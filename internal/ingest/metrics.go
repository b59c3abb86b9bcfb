package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	partitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_partitions_total",
		Help: "Date-range partitions processed by outcome",
	}, []string{"outcome"})

	issuesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_issues_fetched_total",
		Help: "Issues retrieved across all partitions",
	})
)
