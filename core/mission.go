package core

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/signalsfoundry/drone-deconfliction/model"
)

// Mission is one drone's planned flight: an ordered route flown within a
// time window. A mission exclusively owns its route and its generated
// trajectory.
type Mission struct {
	ID         string
	Waypoints  []model.Waypoint
	StartTime  time.Time
	EndTime    time.Time
	Kinematics model.Kinematics

	trajectory Trajectory
}

// MissionOption customises a Mission at construction.
type MissionOption func(*Mission)

// WithKinematics sets the mission's performance envelope.
func WithKinematics(k model.Kinematics) MissionOption {
	return func(m *Mission) { m.Kinematics = k }
}

// NewMission validates and builds a mission. Route waypoints are copied and
// any timestamps on them are dropped.
func NewMission(id string, waypoints []model.Waypoint, start, end time.Time, opts ...MissionOption) (*Mission, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidMission)
	}
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("%w: mission %q needs at least two waypoints, got %d", ErrInvalidMission, id, len(waypoints))
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: mission %q end time %s must be after start time %s",
			ErrInvalidMission, id, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	route := make([]model.Waypoint, len(waypoints))
	for i, wp := range waypoints {
		for _, v := range []float64{wp.X, wp.Y, wp.Z} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: mission %q waypoint %d has non-finite coordinate", ErrInvalidMission, id, i)
			}
		}
		route[i] = model.NewWaypoint(wp.X, wp.Y, wp.Z)
	}

	m := &Mission{
		ID:        id,
		Waypoints: route,
		StartTime: start,
		EndTime:   end,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Window returns the mission's time window.
func (m *Mission) Window() model.TimeInterval {
	return model.TimeInterval{StartTime: m.StartTime, EndTime: m.EndTime}
}

// GenerateTrajectory replaces the mission's trajectory with one flown at the
// given cruise speed and acceleration limits. On error the previous
// trajectory is left untouched.
func (m *Mission) GenerateTrajectory(speed, accel, decel float64) error {
	tr, err := generateTrajectory(m.Waypoints, m.StartTime, speed, accel, decel)
	if err != nil {
		return fmt.Errorf("mission %q: %w", m.ID, err)
	}
	m.trajectory = tr
	return nil
}

// Generated reports whether a trajectory is available.
func (m *Mission) Generated() bool { return len(m.trajectory) > 0 }

// Trajectory returns a copy of the generated trajectory.
func (m *Mission) Trajectory() Trajectory {
	if len(m.trajectory) == 0 {
		return nil
	}
	out := make(Trajectory, len(m.trajectory))
	copy(out, m.trajectory)
	return out
}

// PositionAt returns where the drone is at t. ok is false when t lies outside
// the mission window. The trajectory must have been generated first.
func (m *Mission) PositionAt(t time.Time) (wp model.Waypoint, ok bool, err error) {
	if !m.Window().Contains(t) {
		return model.Waypoint{}, false, nil
	}
	if !m.Generated() {
		return model.Waypoint{}, false, fmt.Errorf("mission %q: %w", m.ID, ErrTrajectoryNotGenerated)
	}
	wp, ok = m.trajectory.At(t)
	return wp, ok, nil
}

// RouteLength returns the total length of the route in metres.
func (m *Mission) RouteLength() float64 {
	var total float64
	for i := 1; i < len(m.Waypoints); i++ {
		total += Distance3D(m.Waypoints[i-1], m.Waypoints[i])
	}
	return total
}
