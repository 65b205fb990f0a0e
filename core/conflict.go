package core

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/drone-deconfliction/internal/logging"
	"github.com/signalsfoundry/drone-deconfliction/model"
)

const tracerName = "github.com/signalsfoundry/drone-deconfliction/core"

// Pair outcomes reported to a DetectionRecorder.
const (
	PairCompared = "compared"
	PairDisjoint = "disjoint"
	PairSelf     = "self"
)

// DetectorConfig tunes the conflict search.
type DetectorConfig struct {
	// SafetyBuffer is the proximity score below which two samples conflict.
	SafetyBuffer float64
	// BinWidth is the width of the time bins the overlap window is split into.
	BinWidth time.Duration
	// TimeWeight scales the time offset (seconds) in the proximity score.
	// Zero compares samples purely spatially.
	TimeWeight float64
	// DefaultKinematics fills unset fields of each mission's envelope.
	DefaultKinematics model.Kinematics
	// Parallelism bounds how many other missions are compared concurrently.
	// Values below 2 compare sequentially.
	Parallelism int
}

// DefaultDetectorConfig returns a 5 m buffer, one-second bins, unit time
// weight, and 2 m/s² rates with cruise speeds fitted to mission windows.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		SafetyBuffer: 5.0,
		BinWidth:     time.Second,
		TimeWeight:   1.0,
		DefaultKinematics: model.Kinematics{
			Acceleration: 2.0,
			Deceleration: 2.0,
		},
		Parallelism: 1,
	}
}

// Validate checks the configuration.
func (c DetectorConfig) Validate() error {
	// NaN scores never compare below the buffer, so non-finite settings
	// would silently report every mission as clear.
	if !(c.SafetyBuffer > 0) || math.IsInf(c.SafetyBuffer, 0) {
		return fmt.Errorf("safety buffer must be positive and finite, got %v", c.SafetyBuffer)
	}
	if c.BinWidth <= 0 {
		return fmt.Errorf("bin width must be positive, got %s", c.BinWidth)
	}
	if !finiteNonNegative(c.TimeWeight) {
		return fmt.Errorf("time weight must be finite and not negative, got %v", c.TimeWeight)
	}
	k := c.DefaultKinematics
	if !finiteNonNegative(k.CruiseSpeed) || !finiteNonNegative(k.Acceleration) || !finiteNonNegative(k.Deceleration) {
		return fmt.Errorf("%w: default kinematics must be finite and not negative", ErrInvalidKinematics)
	}
	return nil
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

// DetectionRecorder receives detector measurements.
type DetectionRecorder interface {
	ObserveRun(duration time.Duration, missions, conflicts int)
	ObservePair(outcome string, evaluations, conflicts int)
	ObserveTrajectory(samples int)
}

// DetectorOption customises a Detector.
type DetectorOption func(*Detector)

// WithLogger sets the detector's logger.
func WithLogger(l logging.Logger) DetectorOption {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r DetectionRecorder) DetectorOption {
	return func(d *Detector) { d.metrics = r }
}

// WithTracer overrides the tracer used for detection spans.
func WithTracer(t trace.Tracer) DetectorOption {
	return func(d *Detector) {
		if t != nil {
			d.tracer = t
		}
	}
}

// Detector compares a primary mission against other missions and reports
// every sample pair whose proximity score falls below the safety buffer.
type Detector struct {
	cfg     DetectorConfig
	log     logging.Logger
	metrics DetectionRecorder
	tracer  trace.Tracer
}

// NewDetector validates cfg and builds a Detector.
func NewDetector(cfg DetectorConfig, opts ...DetectorOption) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Detector{
		cfg:    cfg,
		log:    logging.Noop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns the detector's configuration.
func (d *Detector) Config() DetectorConfig { return d.cfg }

// Prepare (re)generates m's trajectory using its kinematics merged with the
// detector defaults.
func (d *Detector) Prepare(ctx context.Context, m *Mission) (model.Kinematics, error) {
	explicit := m.Kinematics.WithDefaults(d.cfg.DefaultKinematics).CruiseSpeed != 0
	k, err := Plan(m, d.cfg.DefaultKinematics)
	if err != nil {
		return k, err
	}
	if explicit {
		// The drone keeps flying after its window closes; the detector only
		// sees the part of the route inside the window.
		flight, err := RouteDuration(m.Waypoints, k.CruiseSpeed, k.Acceleration, k.Deceleration)
		if err == nil && flight > m.Window().Duration() {
			d.log.Warn(ctx, "route overruns mission window",
				logging.String("mission_id", m.ID),
				logging.Duration("route_duration", flight),
				logging.Duration("window", m.Window().Duration()),
				logging.Float("cruise_speed", k.CruiseSpeed),
			)
		}
	}
	if d.metrics != nil {
		d.metrics.ObserveTrajectory(len(m.trajectory))
	}
	d.log.Debug(ctx, "trajectory generated",
		logging.String("mission_id", m.ID),
		logging.Int("samples", len(m.trajectory)),
		logging.Float("cruise_speed", k.CruiseSpeed),
	)
	return k, nil
}

// Detect generates trajectories for primary and others, then returns the
// conflict records against each other mission in input order. Records are
// not merged; see SummarizeConflicts.
func (d *Detector) Detect(ctx context.Context, primary *Mission, others []*Mission) ([]model.Conflict, error) {
	if primary == nil {
		return nil, fmt.Errorf("%w: primary mission is required", ErrInvalidMission)
	}
	began := time.Now()
	ctx, span := d.tracer.Start(ctx, "Detector.Detect", trace.WithAttributes(
		attribute.String("primary.id", primary.ID),
		attribute.Int("others.count", len(others)),
	))
	defer span.End()

	conflicts, err := d.detect(ctx, primary, others)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("conflicts.count", len(conflicts)))

	if d.metrics != nil {
		d.metrics.ObserveRun(time.Since(began), len(others)+1, len(conflicts))
	}
	d.log.Info(ctx, "conflict detection complete",
		logging.String("primary_id", primary.ID),
		logging.Int("others", len(others)),
		logging.Int("conflicts", len(conflicts)),
	)
	return conflicts, nil
}

func (d *Detector) detect(ctx context.Context, primary *Mission, others []*Mission) ([]model.Conflict, error) {
	if _, err := d.Prepare(ctx, primary); err != nil {
		return nil, err
	}
	for i, other := range others {
		if other == nil {
			return nil, fmt.Errorf("%w: other mission %d is nil", ErrInvalidMission, i)
		}
		if other == primary {
			continue
		}
		if _, err := d.Prepare(ctx, other); err != nil {
			return nil, err
		}
	}

	results := make([][]model.Conflict, len(others))
	if d.cfg.Parallelism > 1 && len(others) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(d.cfg.Parallelism)
		for i, other := range others {
			g.Go(func() error {
				found, err := d.ComparePair(gctx, primary, other)
				results[i] = found
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, other := range others {
			found, err := d.ComparePair(ctx, primary, other)
			if err != nil {
				return nil, err
			}
			results[i] = found
		}
	}

	var total int
	for _, r := range results {
		total += len(r)
	}
	out := make([]model.Conflict, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// ComparePair searches two missions with generated trajectories for
// conflicts over their common time window.
func (d *Detector) ComparePair(ctx context.Context, primary, other *Mission) ([]model.Conflict, error) {
	if other == primary {
		d.observePair(PairSelf, 0, 0)
		return nil, nil
	}
	if !primary.Generated() {
		return nil, fmt.Errorf("mission %q: %w", primary.ID, ErrTrajectoryNotGenerated)
	}
	if !other.Generated() {
		return nil, fmt.Errorf("mission %q: %w", other.ID, ErrTrajectoryNotGenerated)
	}

	overlap, ok := primary.Window().Intersect(other.Window())
	if !ok {
		d.observePair(PairDisjoint, 0, 0)
		d.log.Debug(ctx, "skipping mission without temporal overlap",
			logging.String("primary_id", primary.ID),
			logging.String("other_id", other.ID),
		)
		return nil, nil
	}

	ctx, span := d.tracer.Start(ctx, "Detector.ComparePair", trace.WithAttributes(
		attribute.String("other.id", other.ID),
		attribute.String("overlap.start", overlap.StartTime.Format(time.RFC3339Nano)),
		attribute.String("overlap.end", overlap.EndTime.Format(time.RFC3339Nano)),
	))
	defer span.End()

	var (
		conflicts   []model.Conflict
		evaluations int
	)
	// A zero-length overlap still gets one closed bin at the shared instant.
	for binStart := overlap.StartTime; ; {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return nil, err
		}
		binEnd := binStart.Add(d.cfg.BinWidth)
		last := !binEnd.Before(overlap.EndTime)
		if last {
			binEnd = overlap.EndTime
		}

		primarySamples := binSamples(primary.trajectory, binStart, binEnd, last)
		otherSamples := binSamples(other.trajectory, binStart, binEnd, last)
		for _, p1 := range primarySamples {
			for _, p2 := range otherSamples {
				evaluations++
				score := Proximity(p1, p2, d.cfg.TimeWeight)
				if score < d.cfg.SafetyBuffer {
					conflicts = append(conflicts, model.Conflict{
						Time:           p1.Time,
						Location:       p1.Location(),
						Distance:       score,
						OtherMissionID: other.ID,
					})
				}
			}
		}
		if last {
			break
		}
		binStart = binEnd
	}

	span.SetAttributes(
		attribute.Int("evaluations", evaluations),
		attribute.Int("conflicts.count", len(conflicts)),
	)
	d.observePair(PairCompared, evaluations, len(conflicts))
	d.log.Debug(ctx, "compared mission pair",
		logging.String("primary_id", primary.ID),
		logging.String("other_id", other.ID),
		logging.Int("evaluations", evaluations),
		logging.Int("conflicts", len(conflicts)),
	)
	return conflicts, nil
}

func (d *Detector) observePair(outcome string, evaluations, conflicts int) {
	if d.metrics != nil {
		d.metrics.ObservePair(outcome, evaluations, conflicts)
	}
}

// binSamples returns the trajectory samples in [from, to) (or [from, to]
// when closed), preceded by the interpolated position at from unless a
// sample already sits exactly there.
func binSamples(tr Trajectory, from, to time.Time, closed bool) []model.Waypoint {
	raw := tr.Window(from, to, closed)
	if len(raw) > 0 && raw[0].Time.Equal(from) {
		return raw
	}
	anchor, ok := tr.At(from)
	if !ok {
		return raw
	}
	out := make([]model.Waypoint, 0, len(raw)+1)
	out = append(out, anchor.At(from))
	return append(out, raw...)
}
