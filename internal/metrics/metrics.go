// Package metrics exposes pipeline counters on a private prometheus
// registry. A nil *Registry is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg           *prometheus.Registry
	Records       *prometheus.CounterVec
	PhaseRestarts *prometheus.CounterVec
	Stalls        *prometheus.CounterVec
	PhaseProgress *prometheus.GaugeVec
	PhaseDuration *prometheus.HistogramVec
	IndexBatches  *prometheus.CounterVec
	Runs          *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_sync_records_total",
		Help: "Feed records by outcome.",
	}, []string{"outcome"})
	restarts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_sync_phase_restarts_total",
		Help: "Phase restarts after a stall or failure.",
	}, []string{"phase"})
	stalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_sync_stalls_total",
		Help: "Stalls detected by the monitor.",
	}, []string{"phase"})
	progress := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "catalog_sync_phase_progress_percent",
		Help: "Current phase progress.",
	}, []string{"phase"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_sync_phase_duration_seconds",
		Help:    "Wall time per completed phase attempt.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14),
	}, []string{"phase"})
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_sync_index_batches_total",
		Help: "Index publish batches by result.",
	}, []string{"result"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_sync_runs_total",
		Help: "Orchestrator runs by final status.",
	}, []string{"status"})

	r.MustRegister(records, restarts, stalls, progress, duration, batches, runs)
	return &Registry{
		reg:           r,
		Records:       records,
		PhaseRestarts: restarts,
		Stalls:        stalls,
		PhaseProgress: progress,
		PhaseDuration: duration,
		IndexBatches:  batches,
		Runs:          runs,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// AddRecords counts n records with the given outcome.
func (r *Registry) AddRecords(outcome string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.Records.WithLabelValues(outcome).Add(float64(n))
}

func (r *Registry) PhaseRestarted(phase string) {
	if r == nil {
		return
	}
	r.PhaseRestarts.WithLabelValues(phase).Inc()
}

func (r *Registry) StallDetected(phase string) {
	if r == nil {
		return
	}
	r.Stalls.WithLabelValues(phase).Inc()
}

func (r *Registry) SetProgress(phase string, pct float64) {
	if r == nil {
		return
	}
	r.PhaseProgress.WithLabelValues(phase).Set(pct)
}

func (r *Registry) ObservePhase(phase string, d time.Duration) {
	if r == nil {
		return
	}
	r.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (r *Registry) AddIndexBatches(result string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.IndexBatches.WithLabelValues(result).Add(float64(n))
}

func (r *Registry) RunFinished(status string) {
	if r == nil {
		return
	}
	r.Runs.WithLabelValues(status).Inc()
}
