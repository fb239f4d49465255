// Package metrics provides Prometheus metrics for race sessions.
//
// Nothing is served over the network; a run can dump the registry to a
// node-exporter textfile. All methods are safe on a nil *Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultNamespace = "schneider"
	defaultSubsystem = "session"
)

// sample deltas are usually one sim frame; the tail catches pauses.
var deltaBuckets = []float64{0, 0.01, 0.02, 0.05, 0.1, 0.25, 0.5, 1, 5, 30, 300}

// Option applies a configuration option to Metrics.
type Option func(*Metrics)

// WithNamespace sets the metric namespace.
func WithNamespace(namespace string) Option {
	return func(m *Metrics) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry sets the registry metrics are registered on.
func WithRegistry(r *prometheus.Registry) Option {
	return func(m *Metrics) {
		if r != nil {
			m.registry = r
		}
	}
}

// Metrics holds the session collectors.
type Metrics struct {
	namespace string
	registry  *prometheus.Registry

	samples            prometheus.Counter
	sampleDelta        prometheus.Histogram
	checkpoints        *prometheus.CounterVec
	laps               prometheus.Counter
	racesFinished      prometheus.Counter
	engineFailures     prometheus.Counter
	engineRisk         prometheus.Gauge
	recordImprovements *prometheus.CounterVec
	persistErrors      prometheus.Counter
}

// New creates Metrics on a private registry unless WithRegistry is given.
func New(opts ...Option) *Metrics {
	m := &Metrics{
		namespace: defaultNamespace,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)
	m.samples = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: defaultSubsystem,
		Name:      "samples_total",
		Help:      "Telemetry samples processed",
	})
	m.sampleDelta = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: defaultSubsystem,
		Name:      "sample_delta_seconds",
		Help:      "Simulation time between consecutive samples",
		Buckets:   deltaBuckets,
	})
	m.checkpoints = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: defaultSubsystem,
		Name:      "checkpoints_passed_total",
		Help:      "Checkpoints passed, by checkpoint kind",
	}, []string{"kind"})
	m.laps = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: defaultSubsystem,
		Name:      "laps_completed_total",
		Help:      "Laps completed",
	})
	m.racesFinished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: defaultSubsystem,
		Name:      "races_finished_total",
		Help:      "Races run to their lap target",
	})
	m.engineFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: defaultSubsystem,
		Name:      "engine_failures_total",
		Help:      "Engine failures triggered",
	})
	m.engineRisk = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: defaultSubsystem,
		Name:      "engine_risk_seconds",
		Help:      "Accumulated engine failure risk",
	})
	m.recordImprovements = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "records",
		Name:      "improvements_total",
		Help:      "Best time improvements, by record kind",
	}, []string{"kind"})
	m.persistErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "records",
		Name:      "persist_errors_total",
		Help:      "Failed attempts to persist best times",
	})
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordSample counts a processed sample and its clock delta.
func (m *Metrics) RecordSample(delta float64) {
	if m == nil {
		return
	}
	m.samples.Inc()
	m.sampleDelta.Observe(delta)
}

// RecordCheckpoint counts a passed checkpoint.
func (m *Metrics) RecordCheckpoint(kind string) {
	if m == nil {
		return
	}
	m.checkpoints.WithLabelValues(kind).Inc()
}

// RecordLap counts a completed lap.
func (m *Metrics) RecordLap() {
	if m == nil {
		return
	}
	m.laps.Inc()
}

// RecordRaceFinished counts a finished race.
func (m *Metrics) RecordRaceFinished() {
	if m == nil {
		return
	}
	m.racesFinished.Inc()
}

// RecordEngineFailure counts an engine failure.
func (m *Metrics) RecordEngineFailure() {
	if m == nil {
		return
	}
	m.engineFailures.Inc()
}

// UpdateEngineRisk sets the current risk integral.
func (m *Metrics) UpdateEngineRisk(risk float64) {
	if m == nil {
		return
	}
	m.engineRisk.Set(risk)
}

// RecordImprovement counts a new best time.
func (m *Metrics) RecordImprovement(kind string) {
	if m == nil {
		return
	}
	m.recordImprovements.WithLabelValues(kind).Inc()
}

// RecordPersistError counts a failed record save.
func (m *Metrics) RecordPersistError() {
	if m == nil {
		return
	}
	m.persistErrors.Inc()
}

// WriteTextfile writes the current values in the node-exporter textfile
// format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
