package model

import "time"

// Conflict records one primary sample that came closer to another mission's
// sample than the safety buffer.
type Conflict struct {
	// Time and Location are taken from the primary mission's sample.
	Time     time.Time
	Location [3]float64
	// Distance is the proximity score. It equals the spatial separation
	// only when the time weight is zero or both samples share a timestamp.
	Distance       float64
	OtherMissionID string
}

// ConflictEvent merges consecutive conflict records against one other
// mission into a single encounter.
type ConflictEvent struct {
	OtherMissionID  string
	StartTime       time.Time
	EndTime         time.Time
	ClosestTime     time.Time
	ClosestLocation [3]float64
	MinDistance     float64
	Records         int
}
