package model

// Kinematics is a drone's performance envelope used when turning its route
// into a trajectory. Speeds are m/s, rates m/s².
type Kinematics struct {
	// CruiseSpeed is the target speed between waypoints. Zero asks the
	// planner to fit the cruise speed to the mission window.
	CruiseSpeed float64 `json:"cruise_speed,omitempty" yaml:"cruise_speed,omitempty"`
	// Acceleration is the constant rate used to reach cruise speed.
	Acceleration float64 `json:"acceleration,omitempty" yaml:"acceleration,omitempty"`
	// Deceleration is the constant braking rate (positive).
	Deceleration float64 `json:"deceleration,omitempty" yaml:"deceleration,omitempty"`
}

// WithDefaults fills zero fields of k from def.
func (k Kinematics) WithDefaults(def Kinematics) Kinematics {
	if k.CruiseSpeed == 0 {
		k.CruiseSpeed = def.CruiseSpeed
	}
	if k.Acceleration == 0 {
		k.Acceleration = def.Acceleration
	}
	if k.Deceleration == 0 {
		k.Deceleration = def.Deceleration
	}
	return k
}
