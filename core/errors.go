package core

import "errors"

var (
	// ErrInvalidMission is returned when a mission fails structural validation.
	ErrInvalidMission = errors.New("invalid mission")
	// ErrInvalidKinematics is returned for non-positive speed or rates.
	ErrInvalidKinematics = errors.New("invalid kinematics")
	// ErrTrajectoryNotGenerated is returned when a mission is queried before
	// GenerateTrajectory has succeeded.
	ErrTrajectoryNotGenerated = errors.New("trajectory not generated")
	// ErrWindowInfeasible is returned when a route cannot be flown within its
	// mission window under the given acceleration limits.
	ErrWindowInfeasible = errors.New("mission window infeasible")
)
