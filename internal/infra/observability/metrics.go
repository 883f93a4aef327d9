package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Engine Metrics ─────────────────────────────────────────────────────────

// Computations counts engine runs by resolved root rank.
var Computations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pvplan",
	Subsystem: "engine",
	Name:      "computations_total",
	Help:      "Total compensation computations by resolved rank.",
}, []string{"rank"})

// ComputeSeconds tracks how long a computation takes.
var ComputeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "pvplan",
	Subsystem: "engine",
	Name:      "compute_seconds",
	Help:      "Time spent computing one compensation result.",
	Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
})

// DownlineMembers tracks the size of computed downlines.
var DownlineMembers = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "pvplan",
	Subsystem: "engine",
	Name:      "downline_members",
	Help:      "Number of downline members per computation.",
	Buckets:   []float64{0, 1, 10, 100, 1_000, 10_000, 100_000},
})

// RecordComputation updates the engine metrics for one run.
func RecordComputation(rank string, members int, elapsed time.Duration) {
	Computations.WithLabelValues(rank).Inc()
	ComputeSeconds.Observe(elapsed.Seconds())
	DownlineMembers.Observe(float64(members))
}

// ─── License Metrics ────────────────────────────────────────────────────────

// LicenseLookups counts license checks by outcome ("valid", "not_found", ...).
var LicenseLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pvplan",
	Subsystem: "license",
	Name:      "lookups_total",
	Help:      "Total license code lookups by result.",
}, []string{"result"})

// ─── Trace Metrics ──────────────────────────────────────────────────────────

// SpansRecorded tracks total spans recorded.
var SpansRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pvplan",
	Subsystem: "traces",
	Name:      "spans_recorded_total",
	Help:      "Total trace spans recorded.",
})

// SpanErrors tracks error spans.
var SpanErrors = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pvplan",
	Subsystem: "traces",
	Name:      "error_spans_total",
	Help:      "Total trace spans with error status.",
})
