// Package metrics records commit and rewrite outcomes as Prometheus metrics.
//
// A Recorder owns its registry so several engines, or tests, can run in one
// process without colliding on the global default registry.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dusk-indust/blueprint/internal/orchestrator"
	"github.com/dusk-indust/blueprint/internal/reconcile"
)

const namespace = "blueprint"

// Recorder implements orchestrator.Observer and reconcile.CommitObserver.
type Recorder struct {
	registry *prometheus.Registry

	commits         *prometheus.CounterVec
	commitDuration  prometheus.Histogram
	attempts        *prometheus.CounterVec
	results         *prometheus.CounterVec
	fallbacks       prometheus.Counter
	changeRatio     prometheus.Histogram
	mappingCoverage prometheus.Gauge
	edgeDrift       *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		commits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Blueprint commits by outcome (applied, dry_run, noop).",
		}, []string{"outcome"}),
		commitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commit_duration_seconds",
			Help:      "Wall time of a blueprint commit.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		attempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewrite",
			Name:      "attempts_total",
			Help:      "Rewrite attempts by result (ok, rejected, error).",
		}, []string{"result"}),
		results: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewrite",
			Name:      "files_total",
			Help:      "Rewritten files by final status.",
		}, []string{"status"}),
		fallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewrite",
			Name:      "fallbacks_total",
			Help:      "Files that received the guaranteed-diff fallback.",
		}),
		changeRatio: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rewrite",
			Name:      "change_ratio",
			Help:      "Fraction of positions that differ between old and new content.",
			Buckets:   []float64{0.01, 0.05, 0.12, 0.25, 0.5, 0.75, 1},
		}),
		mappingCoverage: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mapping_coverage_ratio",
			Help:      "Mapped fraction of blueprint edges in the last commit.",
		}),
		edgeDrift: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "edge_drift",
			Help:      "Edges added or removed by the last commit's blueprint.",
		}, []string{"direction"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveAttempt implements orchestrator.Observer.
func (r *Recorder) ObserveAttempt(_ string, _ int, err error) {
	switch {
	case err == nil:
		r.attempts.WithLabelValues("ok").Inc()
	case errors.Is(err, orchestrator.ErrEmptyOutput),
		errors.Is(err, orchestrator.ErrUnchangedOutput),
		errors.Is(err, orchestrator.ErrQualityRejected):
		r.attempts.WithLabelValues("rejected").Inc()
	default:
		r.attempts.WithLabelValues("error").Inc()
	}
}

// ObserveResult implements orchestrator.Observer.
func (r *Recorder) ObserveResult(res orchestrator.Result) {
	r.results.WithLabelValues(string(res.Status)).Inc()
	if res.ForcedFallback {
		r.fallbacks.Inc()
	}
	if res.Status.Writable() {
		r.changeRatio.Observe(res.ChangeRatio)
	}
}

// ObserveCommit implements reconcile.CommitObserver.
func (r *Recorder) ObserveCommit(resp *reconcile.Response, elapsed time.Duration) {
	outcome := "noop"
	switch {
	case resp.DryRun:
		outcome = "dry_run"
	case resp.Applied:
		outcome = "applied"
	}
	r.commits.WithLabelValues(outcome).Inc()
	r.commitDuration.Observe(elapsed.Seconds())
	r.mappingCoverage.Set(resp.Comparison.MappingCoverage)
	r.edgeDrift.WithLabelValues("added").Set(float64(len(resp.Comparison.AddedEdges)))
	r.edgeDrift.WithLabelValues("removed").Set(float64(len(resp.Comparison.RemovedEdges)))
}
