package model

import "time"

// TimeInterval is a closed interval of wall-clock time.
type TimeInterval struct {
	StartTime time.Time
	EndTime   time.Time
}

// Duration returns the length of the interval.
func (ti TimeInterval) Duration() time.Duration {
	return ti.EndTime.Sub(ti.StartTime)
}

// Contains reports whether t lies within the closed interval.
func (ti TimeInterval) Contains(t time.Time) bool {
	return !t.Before(ti.StartTime) && !t.After(ti.EndTime)
}

// Overlaps reports whether the two closed intervals share at least one instant.
func (ti TimeInterval) Overlaps(other TimeInterval) bool {
	return !ti.EndTime.Before(other.StartTime) && !other.EndTime.Before(ti.StartTime)
}

// Intersect returns the common part of two intervals. ok is false when they
// do not overlap.
func (ti TimeInterval) Intersect(other TimeInterval) (TimeInterval, bool) {
	if !ti.Overlaps(other) {
		return TimeInterval{}, false
	}
	out := ti
	if other.StartTime.After(out.StartTime) {
		out.StartTime = other.StartTime
	}
	if other.EndTime.Before(out.EndTime) {
		out.EndTime = other.EndTime
	}
	return out, true
}
