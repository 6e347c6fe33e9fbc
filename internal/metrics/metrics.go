// Package metrics exposes prometheus counters for the deletion engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ScansTotal counts completed library scan passes
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prunerr_scans_total",
		Help: "Number of completed library scan passes",
	})

	// ItemsFlagged counts items flagged by rules
	ItemsFlagged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prunerr_items_flagged_total",
		Help: "Number of media items flagged by rules",
	})

	// ItemsQueued counts items queued for deletion
	ItemsQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prunerr_items_queued_total",
		Help: "Number of media items queued for deletion",
	})

	// Deletions counts executed deletions by action and result
	Deletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prunerr_deletions_total",
		Help: "Number of executed deletions by action and result",
	}, []string{"action", "result"})

	// BytesFreed counts bytes freed by deletions
	BytesFreed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prunerr_bytes_freed_total",
		Help: "Bytes freed by deletions (from the recorded item size)",
	})

	// TaskRuns counts scheduler task runs by task name and outcome
	TaskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prunerr_task_runs_total",
		Help: "Number of scheduler task runs by task and outcome",
	}, []string{"task", "status"})
)

// Handler returns the /metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
