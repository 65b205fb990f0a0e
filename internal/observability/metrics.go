package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DetectorCollector bundles Prometheus metrics for conflict detection runs
// and satisfies core.DetectionRecorder.
type DetectorCollector struct {
	gatherer prometheus.Gatherer

	Runs              prometheus.Counter
	RunDuration       prometheus.Histogram
	MissionsLastRun   prometheus.Gauge
	ConflictsLastRun  prometheus.Gauge
	ConflictsTotal    prometheus.Counter
	MissionPairs      *prometheus.CounterVec
	PairEvaluations   prometheus.Counter
	PairConflicts     *prometheus.CounterVec
	TrajectorySamples prometheus.Histogram
}

// NewDetectorCollector registers detector metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewDetectorCollector(reg prometheus.Registerer) (*DetectorCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deconflict_runs_total",
		Help: "Total number of completed conflict detection runs.",
	}), "deconflict_runs_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "deconflict_run_duration_seconds",
		Help:    "Wall-clock duration of conflict detection runs, trajectory generation included.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	}), "deconflict_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	missions, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "deconflict_missions_last_run",
		Help: "Number of missions (primary included) in the most recent run.",
	}), "deconflict_missions_last_run")
	if err != nil {
		return nil, err
	}

	lastConflicts, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "deconflict_conflicts_last_run",
		Help: "Number of conflict records produced by the most recent run.",
	}), "deconflict_conflicts_last_run")
	if err != nil {
		return nil, err
	}

	conflicts, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deconflict_conflicts_total",
		Help: "Cumulative number of conflict records produced.",
	}), "deconflict_conflicts_total")
	if err != nil {
		return nil, err
	}

	pairs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deconflict_mission_pairs_total",
		Help: "Mission pairs considered, labeled by outcome (compared, disjoint, self).",
	}, []string{"outcome"}), "deconflict_mission_pairs_total")
	if err != nil {
		return nil, err
	}

	evaluations, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deconflict_pair_evaluations_total",
		Help: "Cumulative number of sample pairs scored with the proximity metric.",
	}), "deconflict_pair_evaluations_total")
	if err != nil {
		return nil, err
	}

	pairConflicts, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deconflict_pair_conflicts_total",
		Help: "Conflict records produced per mission pair, labeled by pair outcome.",
	}, []string{"outcome"}), "deconflict_pair_conflicts_total")
	if err != nil {
		return nil, err
	}

	samples, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "deconflict_trajectory_samples",
		Help:    "Number of samples in each generated trajectory.",
		Buckets: prometheus.ExponentialBuckets(2, 4, 10),
	}), "deconflict_trajectory_samples")
	if err != nil {
		return nil, err
	}

	return &DetectorCollector{
		gatherer:          gatherer,
		Runs:              runs,
		RunDuration:       duration,
		MissionsLastRun:   missions,
		ConflictsLastRun:  lastConflicts,
		ConflictsTotal:    conflicts,
		MissionPairs:      pairs,
		PairEvaluations:   evaluations,
		PairConflicts:     pairConflicts,
		TrajectorySamples: samples,
	}, nil
}

// ObserveRun records a completed detection run.
func (c *DetectorCollector) ObserveRun(d time.Duration, missions, conflicts int) {
	if c == nil {
		return
	}
	c.Runs.Inc()
	c.RunDuration.Observe(d.Seconds())
	c.MissionsLastRun.Set(float64(missions))
	c.ConflictsLastRun.Set(float64(conflicts))
	c.ConflictsTotal.Add(float64(conflicts))
}

// ObservePair records the outcome of one primary/other comparison.
func (c *DetectorCollector) ObservePair(outcome string, evaluations, conflicts int) {
	if c == nil {
		return
	}
	c.MissionPairs.WithLabelValues(outcome).Inc()
	c.PairEvaluations.Add(float64(evaluations))
	c.PairConflicts.WithLabelValues(outcome).Add(float64(conflicts))
}

// ObserveTrajectory records the size of a generated trajectory.
func (c *DetectorCollector) ObserveTrajectory(samples int) {
	if c == nil {
		return
	}
	c.TrajectorySamples.Observe(float64(samples))
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *DetectorCollector) Gatherer() prometheus.Gatherer {
	if c == nil || c.gatherer == nil {
		return prometheus.DefaultGatherer
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *DetectorCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Gatherer(), promhttp.HandlerOpts{})
}

// WriteTextfile writes the current metrics in the text exposition format,
// suitable for node_exporter's textfile collector.
func (c *DetectorCollector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.Gatherer()); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
