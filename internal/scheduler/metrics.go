package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	taskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_task_runs_total",
		Help: "Scheduler task executions by task type and result.",
	}, []string{"task", "result"})

	enqueueFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_enqueue_failures_total",
		Help: "Tasks that could not be handed to redis.",
	}, []string{"task"})

	discountsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discount_cleanup_removed_total",
		Help: "Expired discounts removed by the cleanup job.",
	})
)

func observeTask(task string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	taskRuns.WithLabelValues(task, result).Inc()
}
