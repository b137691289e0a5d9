package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codewithboateng/modlint/internal/ir"
)

const namespace = "modlint"

// Metrics collects per-run validation counters on its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	runs     *prometheus.CounterVec
	files    prometheus.Counter
	findings *prometheus.CounterVec
	cycles   prometheus.Counter
	missing  prometheus.Counter
	duration prometheus.Histogram
	lastRun  prometheus.Gauge
}

// New registers the collectors. withRuntime adds the Go and process
// collectors, which the API server exposes but tests do not need.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_total",
			Help: "Module validation runs by outcome.",
		}, []string{"valid"}),
		files: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "documents_total",
			Help: "Documents validated.",
		}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "findings_total",
			Help: "Findings raised, by severity.",
		}, []string{"severity"}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cycles_total",
			Help: "Circular dependencies detected.",
		}),
		missing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "missing_dependencies_total",
			Help: "Dependencies referencing documents absent from the corpus.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "run_duration_seconds",
			Help:    "Wall time of a module validation run.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_timestamp_seconds",
			Help: "Start time of the most recent run.",
		}),
	}
	reg.MustRegister(m.runs, m.files, m.findings, m.cycles, m.missing, m.duration, m.lastRun)
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return m
}

func (m *Metrics) ObserveRun(r *ir.Report, elapsed time.Duration) {
	valid := "false"
	if r.Valid {
		valid = "true"
	}
	m.runs.WithLabelValues(valid).Inc()
	m.files.Add(float64(r.Totals.Files))
	m.findings.WithLabelValues(string(ir.SeverityError)).Add(float64(r.Totals.Errors))
	m.findings.WithLabelValues(string(ir.SeverityWarning)).Add(float64(r.Totals.Warnings))
	m.findings.WithLabelValues(string(ir.SeverityInfo)).Add(float64(r.Totals.Infos))
	m.cycles.Add(float64(r.Totals.Cycles))
	m.missing.Add(float64(r.Totals.Missing))
	m.duration.Observe(elapsed.Seconds())
	if !r.StartedAt.IsZero() {
		m.lastRun.Set(float64(r.StartedAt.Unix()))
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
