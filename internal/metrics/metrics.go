// Package metrics counts pipeline outcomes with Prometheus collectors and can
// dump them in the node-exporter textfile format at the end of a run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "unitsync"

// Recorder holds the collectors of one run. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	// focalTotal counts tests by language and outcome (located, not_found)
	focalTotal *prometheus.CounterVec
	// resolveTotal counts resolution outcomes by language and result
	// (success or a ResolveKind)
	resolveTotal *prometheus.CounterVec
	// repoTotal counts repositories by stage and status
	repoTotal *prometheus.CounterVec
	// recordsTotal counts written output records by stage
	recordsTotal *prometheus.CounterVec
	// repoSeconds measures wall time per repository by stage
	repoSeconds *prometheus.HistogramVec
}

// NewRecorder registers the run's collectors on a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		focalTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "focal",
			Name:      "tests_total",
			Help:      "Discovered tests by language and focal outcome",
		}, []string{"language", "outcome"}),
		resolveTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolve",
			Name:      "calls_total",
			Help:      "Focal call resolutions by language and result",
		}, []string{"language", "result"}),
		repoTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repo",
			Name:      "processed_total",
			Help:      "Processed repositories by stage and status",
		}, []string{"stage", "status"}),
		recordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "output",
			Name:      "records_total",
			Help:      "Records written by stage",
		}, []string{"stage"}),
		repoSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "repo",
			Name:      "duration_seconds",
			Help:      "Wall time spent per repository by stage",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"stage"}),
	}
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveFocal records whether a focal call was located for a test
func (r *Recorder) ObserveFocal(language string, located bool) {
	if r == nil {
		return
	}
	outcome := "not_found"
	if located {
		outcome = "located"
	}
	r.focalTotal.WithLabelValues(language, outcome).Inc()
}

// ObserveResolve records a resolution result: "success" or a failure kind
func (r *Recorder) ObserveResolve(language, result string) {
	if r == nil {
		return
	}
	r.resolveTotal.WithLabelValues(language, result).Inc()
}

// ObserveRepo records a finished repository and how long it took
func (r *Recorder) ObserveRepo(stage, status string, seconds float64) {
	if r == nil {
		return
	}
	r.repoTotal.WithLabelValues(stage, status).Inc()
	r.repoSeconds.WithLabelValues(stage).Observe(seconds)
}

// ObserveRecords adds n written records for a stage
func (r *Recorder) ObserveRecords(stage string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.recordsTotal.WithLabelValues(stage).Add(float64(n))
}

// WriteTextfile writes every collector to path in the textfile exposition format
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
