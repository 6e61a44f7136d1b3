package indexer

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_sync_jobs_total",
			Help: "Search index sync attempts by kind, operation and result",
		},
		[]string{"kind", "op", "result"},
	)

	syncDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_sync_dropped_total",
			Help: "Sync jobs dropped because the queue was full or stopped",
		},
	)

	syncQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "search_sync_queue_depth",
			Help: "Sync jobs waiting in the in-memory queue",
		},
	)
)

func observeJob(job Job, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrIndexUnavailable):
		result = "unavailable"
	default:
		result = "error"
	}
	syncJobsTotal.WithLabelValues(string(job.Kind), string(job.Op), result).Inc()
}
