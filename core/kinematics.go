package core

import (
	"fmt"
	"math"
)

// ProfileKind identifies the speed-versus-time shape used for one segment.
type ProfileKind int

const (
	// ProfileStationary covers zero-length segments.
	ProfileStationary ProfileKind = iota
	// ProfileTrapezoidal accelerates to cruise speed, cruises, then brakes.
	ProfileTrapezoidal
	// ProfileTriangular brakes before cruise speed is reached.
	ProfileTriangular
)

func (k ProfileKind) String() string {
	switch k {
	case ProfileTrapezoidal:
		return "trapezoidal"
	case ProfileTriangular:
		return "triangular"
	default:
		return "stationary"
	}
}

// SegmentProfile is the constant-acceleration speed profile for travelling
// one straight segment from rest to rest. Distances are metres, times
// seconds, measured from the start of the segment.
type SegmentProfile struct {
	Kind         ProfileKind
	Distance     float64
	PeakSpeed    float64
	Acceleration float64
	Deceleration float64

	AccelTime  float64
	CruiseTime float64
	DecelTime  float64

	AccelDistance  float64
	CruiseDistance float64
	DecelDistance  float64
}

// NewSegmentProfile chooses between a trapezoidal and a triangular profile
// for a segment of length distance flown with the given cruise speed and
// acceleration/deceleration limits.
func NewSegmentProfile(distance, speed, accel, decel float64) (SegmentProfile, error) {
	if err := validateKinematics(speed, accel, decel); err != nil {
		return SegmentProfile{}, err
	}
	if distance < 0 || math.IsNaN(distance) || math.IsInf(distance, 0) {
		return SegmentProfile{}, fmt.Errorf("%w: segment distance %v", ErrInvalidKinematics, distance)
	}

	p := SegmentProfile{
		Distance:     distance,
		Acceleration: accel,
		Deceleration: decel,
	}
	if distance == 0 {
		p.Kind = ProfileStationary
		return p, nil
	}

	da := speed * speed / (2 * accel)
	db := speed * speed / (2 * decel)
	if da+db <= distance {
		p.Kind = ProfileTrapezoidal
		p.PeakSpeed = speed
		p.AccelDistance = da
		p.DecelDistance = db
		p.CruiseDistance = distance - da - db
		p.AccelTime = speed / accel
		p.CruiseTime = p.CruiseDistance / speed
		p.DecelTime = speed / decel
		return p, nil
	}

	peak := math.Sqrt(2 * accel * decel * distance / (accel + decel))
	p.Kind = ProfileTriangular
	p.PeakSpeed = peak
	p.AccelDistance = peak * peak / (2 * accel)
	p.DecelDistance = distance - p.AccelDistance
	p.AccelTime = peak / accel
	p.DecelTime = peak / decel
	return p, nil
}

// Duration is the time needed to fly the whole segment.
func (p SegmentProfile) Duration() float64 {
	return p.AccelTime + p.CruiseTime + p.DecelTime
}

// DistanceAt returns the distance covered t seconds into the segment.
func (p SegmentProfile) DistanceAt(t float64) float64 {
	total := p.Duration()
	switch {
	case t <= 0 || p.Kind == ProfileStationary:
		return 0
	case t >= total:
		return p.Distance
	case t < p.AccelTime:
		return 0.5 * p.Acceleration * t * t
	case t < p.AccelTime+p.CruiseTime:
		return p.AccelDistance + p.PeakSpeed*(t-p.AccelTime)
	default:
		rem := total - t
		return p.Distance - 0.5*p.Deceleration*rem*rem
	}
}

// TimeAt inverts DistanceAt: it returns the time at which s metres of the
// segment have been covered.
func (p SegmentProfile) TimeAt(s float64) float64 {
	switch {
	case s <= 0 || p.Kind == ProfileStationary:
		return 0
	case s >= p.Distance:
		return p.Duration()
	case s <= p.AccelDistance:
		return math.Sqrt(2 * s / p.Acceleration)
	case s <= p.AccelDistance+p.CruiseDistance:
		return p.AccelTime + (s-p.AccelDistance)/p.PeakSpeed
	default:
		rem := math.Max(0, p.Distance-s)
		return p.Duration() - math.Sqrt(2*rem/p.Deceleration)
	}
}

// SpeedAt returns the instantaneous speed t seconds into the segment.
func (p SegmentProfile) SpeedAt(t float64) float64 {
	total := p.Duration()
	switch {
	case t <= 0 || t >= total || p.Kind == ProfileStationary:
		return 0
	case t < p.AccelTime:
		return p.Acceleration * t
	case t < p.AccelTime+p.CruiseTime:
		return p.PeakSpeed
	default:
		return p.Deceleration * (total - t)
	}
}

// segmentDuration is the duration of the profile for one segment. Inputs
// must already be validated.
func segmentDuration(distance, speed, accel, decel float64) float64 {
	p, err := NewSegmentProfile(distance, speed, accel, decel)
	if err != nil {
		return math.Inf(1)
	}
	return p.Duration()
}

func validateKinematics(speed, accel, decel float64) error {
	if !(speed > 0) || math.IsInf(speed, 0) {
		return fmt.Errorf("%w: speed must be positive, got %v", ErrInvalidKinematics, speed)
	}
	if !(accel > 0) || !(decel > 0) || math.IsInf(accel, 0) || math.IsInf(decel, 0) {
		return fmt.Errorf("%w: acceleration and deceleration must be positive, got %v/%v", ErrInvalidKinematics, accel, decel)
	}
	return nil
}
