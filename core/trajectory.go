package core

import (
	"math"
	"sort"
	"time"

	"github.com/signalsfoundry/drone-deconfliction/model"
)

// Trajectory is a time-ordered sequence of timed waypoints. Timestamps are
// non-decreasing.
type Trajectory []model.Waypoint

// Start returns the time of the first sample, or the zero time if empty.
func (tr Trajectory) Start() time.Time {
	if len(tr) == 0 {
		return time.Time{}
	}
	return tr[0].Time
}

// End returns the time of the last sample, or the zero time if empty.
func (tr Trajectory) End() time.Time {
	if len(tr) == 0 {
		return time.Time{}
	}
	return tr[len(tr)-1].Time
}

// At returns the position at t. Times outside the sampled span clamp to the
// first or last sample. ok is false only for an empty trajectory.
func (tr Trajectory) At(t time.Time) (model.Waypoint, bool) {
	n := len(tr)
	if n == 0 {
		return model.Waypoint{}, false
	}
	i := tr.searchFrom(t)
	switch {
	case i < n && tr[i].Time.Equal(t):
		return tr[i], true
	case i == 0:
		return tr[0], true
	case i == n:
		return tr[n-1], true
	}

	a, b := tr[i-1], tr[i]
	span := b.Time.Sub(a.Time)
	if span == 0 {
		return a, true
	}
	ratio := t.Sub(a.Time).Seconds() / span.Seconds()
	return model.WaypointFromVec(lerp(a.Vec(), b.Vec(), ratio), t), true
}

// Window returns the samples with from <= Time < to. When closed is true the
// upper bound is inclusive.
func (tr Trajectory) Window(from, to time.Time, closed bool) []model.Waypoint {
	lo := tr.searchFrom(from)
	var hi int
	if closed {
		hi = sort.Search(len(tr), func(i int) bool { return tr[i].Time.After(to) })
	} else {
		hi = tr.searchFrom(to)
	}
	if hi <= lo {
		return nil
	}
	return tr[lo:hi]
}

// searchFrom returns the index of the first sample at or after t.
func (tr Trajectory) searchFrom(t time.Time) int {
	return sort.Search(len(tr), func(i int) bool { return !tr[i].Time.Before(t) })
}

// generateTrajectory profiles every segment of route and samples it about
// once per metre, starting at start.
func generateTrajectory(route []model.Waypoint, start time.Time, speed, accel, decel float64) (Trajectory, error) {
	if err := validateKinematics(speed, accel, decel); err != nil {
		return nil, err
	}

	profiles := make([]SegmentProfile, 0, len(route))
	capacity := 1
	for i := 1; i < len(route); i++ {
		d := Distance3D(route[i-1], route[i])
		p, err := NewSegmentProfile(d, speed, accel, decel)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
		capacity += samplesFor(d)
	}

	out := make(Trajectory, 0, capacity)
	out = append(out, route[0].At(start))

	// Elapsed time is kept in float seconds from start so that every stamp
	// is derived the same way.
	var elapsed float64
	for i, p := range profiles {
		from, to := route[i], route[i+1]
		if p.Kind == ProfileStationary {
			out = append(out, to.At(start.Add(durationOf(elapsed))))
			continue
		}

		a, b := from.Vec(), to.Vec()
		n := samplesFor(p.Distance)
		for j := 1; j < n; j++ {
			s := float64(j) / float64(n) * p.Distance
			t := p.TimeAt(s)
			pos := lerp(a, b, s/p.Distance)
			out = append(out, model.WaypointFromVec(pos, start.Add(durationOf(elapsed+t))))
		}
		elapsed += p.Duration()
		out = append(out, to.At(start.Add(durationOf(elapsed))))
	}
	return out, nil
}

// samplesFor returns the number of samples for a segment: one per metre,
// at least two, the arrival waypoint included.
func samplesFor(distance float64) int {
	n := int(math.Floor(distance))
	if n < 2 {
		return 2
	}
	return n
}
