package model

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Waypoint is a point in a local Cartesian frame (metres) with an optional
// timestamp. Route waypoints supplied by a planner are untimed; samples
// emitted by trajectory generation always carry a time.
type Waypoint struct {
	X float64
	Y float64
	Z float64

	// Time is zero for untimed route waypoints.
	Time time.Time
}

// NewWaypoint returns an untimed waypoint.
func NewWaypoint(x, y, z float64) Waypoint {
	return Waypoint{X: x, Y: y, Z: z}
}

// Timed reports whether the waypoint carries a timestamp.
func (w Waypoint) Timed() bool { return !w.Time.IsZero() }

// At returns a copy of w stamped with t.
func (w Waypoint) At(t time.Time) Waypoint {
	w.Time = t
	return w
}

// Vec returns the spatial part of the waypoint.
func (w Waypoint) Vec() r3.Vec {
	return r3.Vec{X: w.X, Y: w.Y, Z: w.Z}
}

// Location returns the spatial part as a fixed 3-tuple.
func (w Waypoint) Location() [3]float64 {
	return [3]float64{w.X, w.Y, w.Z}
}

// WaypointFromVec builds a waypoint at v stamped with t.
func WaypointFromVec(v r3.Vec, t time.Time) Waypoint {
	return Waypoint{X: v.X, Y: v.Y, Z: v.Z, Time: t}
}
