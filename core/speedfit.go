package core

import (
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/drone-deconfliction/model"
)

const fitIterations = 200

// RouteDuration returns how long the route takes when every segment is flown
// from rest to rest with the given kinematics.
func RouteDuration(waypoints []model.Waypoint, speed, accel, decel float64) (time.Duration, error) {
	if err := validateKinematics(speed, accel, decel); err != nil {
		return 0, err
	}
	var total float64
	for i := 1; i < len(waypoints); i++ {
		total += segmentDuration(Distance3D(waypoints[i-1], waypoints[i]), speed, accel, decel)
	}
	return durationOf(total), nil
}

// FitCruiseSpeed returns the cruise speed at which the route, flown with the
// given acceleration limits, takes the whole mission window. The route never
// finishes later than the window end.
func FitCruiseSpeed(waypoints []model.Waypoint, window model.TimeInterval, accel, decel float64) (float64, error) {
	if err := validateKinematics(1, accel, decel); err != nil {
		return 0, err
	}
	target := window.Duration().Seconds()
	if target <= 0 {
		return 0, fmt.Errorf("%w: window has no duration", ErrWindowInfeasible)
	}

	dists := make([]float64, 0, len(waypoints))
	var total, vmax float64
	k := 1/(2*accel) + 1/(2*decel)
	for i := 1; i < len(waypoints); i++ {
		d := Distance3D(waypoints[i-1], waypoints[i])
		dists = append(dists, d)
		total += d
		// Beyond this speed the segment is triangular and no longer speeds up.
		vmax = math.Max(vmax, math.Sqrt(d/k))
	}
	if total == 0 {
		// A route that never moves takes no time at any speed.
		return 1, nil
	}

	duration := func(v float64) float64 {
		var sum float64
		for _, d := range dists {
			sum += segmentDuration(d, v, accel, decel)
		}
		return sum
	}

	if fastest := duration(vmax); fastest > target {
		return 0, fmt.Errorf("%w: route needs at least %.3fs, window is %.3fs", ErrWindowInfeasible, fastest, target)
	}

	// duration(total/target) >= target, duration(vmax) <= target and the
	// duration is non-increasing in v.
	lo, hi := total/target, vmax
	if lo >= hi {
		return hi, nil
	}
	for i := 0; i < fitIterations; i++ {
		mid := lo + (hi-lo)/2
		if mid <= lo || mid >= hi {
			break
		}
		if duration(mid) > target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi, nil
}

// Plan generates m's trajectory from its own kinematics, falling back to
// defaults for unset fields. A zero cruise speed is fitted to the mission
// window. It returns the kinematics actually used.
func Plan(m *Mission, defaults model.Kinematics) (model.Kinematics, error) {
	k := m.Kinematics.WithDefaults(defaults)
	if k.CruiseSpeed == 0 {
		v, err := FitCruiseSpeed(m.Waypoints, m.Window(), k.Acceleration, k.Deceleration)
		if err != nil {
			return k, fmt.Errorf("mission %q: %w", m.ID, err)
		}
		k.CruiseSpeed = v
	}
	if err := m.GenerateTrajectory(k.CruiseSpeed, k.Acceleration, k.Deceleration); err != nil {
		return k, err
	}
	return k, nil
}
