package core

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/drone-deconfliction/model"
)

// Distance3D returns the straight-line distance between two waypoints,
// ignoring their timestamps.
func Distance3D(a, b model.Waypoint) float64 {
	return r3.Norm(r3.Sub(a.Vec(), b.Vec()))
}

// Proximity combines spatial separation with the time offset between two
// samples into a single closeness score:
//
//	sqrt(d² + (|Δt|·timeWeight)²)
//
// Δt is measured in seconds. The score only has units of metres when
// timeWeight is zero or the samples share a timestamp; otherwise it is a
// ranking value compared against the safety buffer.
func Proximity(a, b model.Waypoint, timeWeight float64) float64 {
	spatial := Distance3D(a, b)
	if timeWeight == 0 {
		return spatial
	}
	dt := math.Abs(a.Time.Sub(b.Time).Seconds())
	return math.Hypot(spatial, dt*timeWeight)
}

// lerp moves fraction f of the way from a to b.
func lerp(a, b r3.Vec, f float64) r3.Vec {
	return r3.Add(a, r3.Scale(f, r3.Sub(b, a)))
}

// durationOf converts float seconds into a Duration, rounding to the nearest
// nanosecond.
func durationOf(sec float64) time.Duration {
	return time.Duration(math.Round(sec * float64(time.Second)))
}
