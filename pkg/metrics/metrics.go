// Package metrics provides Prometheus metrics for moss runs.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Ramsey-B/moss/pkg/report"
)

var (
	// RunsTotal tracks finished runs by direction and status
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moss",
			Subsystem: "run",
			Name:      "total",
			Help:      "Total number of runs by direction and status",
		},
		[]string{"direction", "status"},
	)

	// RunDuration tracks run duration in seconds
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "moss",
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Duration of runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"direction", "status"},
	)

	// RunsInFlight tracks runs currently executing
	RunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "moss",
			Subsystem: "run",
			Name:      "in_flight",
			Help:      "Number of runs currently executing",
		},
	)

	// RowsWritten tracks rows written per target class
	RowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moss",
			Subsystem: "mapping",
			Name:      "rows_total",
			Help:      "Total number of rows written by class",
		},
		[]string{"direction", "class"},
	)

	// WarningsTotal tracks data warnings by kind
	WarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moss",
			Subsystem: "mapping",
			Name:      "warnings_total",
			Help:      "Total number of data warnings by kind",
		},
		[]string{"direction", "kind"},
	)

	// ToolInvocationsTotal tracks external tool runs by operation and exit status
	ToolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moss",
			Subsystem: "tool",
			Name:      "invocations_total",
			Help:      "Total number of external tool invocations",
		},
		[]string{"operation", "exit_code"},
	)
)

// ObserveRun records a finished run.
func ObserveRun(direction, status string, elapsed time.Duration) {
	RunsTotal.WithLabelValues(direction, status).Inc()
	RunDuration.WithLabelValues(direction, status).Observe(elapsed.Seconds())
}

// ObserveRows adds the per class row counts of a run.
func ObserveRows(direction string, counts map[string]int) {
	for class, n := range counts {
		RowsWritten.WithLabelValues(direction, class).Add(float64(n))
	}
}

func ObserveWarnings(direction string, warnings []report.Warning) {
	for _, w := range warnings {
		WarningsTotal.WithLabelValues(direction, string(w.Kind)).Inc()
	}
}

// ObserveTool matches the tool driver's observer signature.
func ObserveTool(operation string, exitCode int) {
	ToolInvocationsTotal.WithLabelValues(operation, strconv.Itoa(exitCode)).Inc()
}
