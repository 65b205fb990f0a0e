package core

import (
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/drone-deconfliction/model"
)

func TestDistance3D(t *testing.T) {
	a := model.NewWaypoint(0, 0, 0)
	b := model.NewWaypoint(3, 4, 12)
	if got := Distance3D(a, b); got != 13 {
		t.Fatalf("Distance3D = %v, want 13", got)
	}
}

func TestProximity_Symmetric(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		a, b model.Waypoint
		w    float64
	}{
		{model.Waypoint{X: 1, Y: 2, Z: 3, Time: t0}, model.Waypoint{X: -4, Y: 0.5, Z: 9, Time: t0.Add(1500 * time.Millisecond)}, 1},
		{model.Waypoint{X: 70, Y: 70, Z: 50, Time: t0}, model.Waypoint{X: 90, Y: 50, Z: 50, Time: t0.Add(-7 * time.Second)}, 0.25},
		{model.Waypoint{X: 0, Y: 0, Z: 0, Time: t0}, model.Waypoint{X: 0, Y: 0, Z: 0, Time: t0.Add(time.Minute)}, 3},
	}
	for _, tc := range cases {
		if ab, ba := Proximity(tc.a, tc.b, tc.w), Proximity(tc.b, tc.a, tc.w); ab != ba {
			t.Fatalf("Proximity not symmetric: %v vs %v", ab, ba)
		}
	}
}

func TestProximity_ZeroWeightIsSpatial(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	a := model.Waypoint{X: 70, Y: 70, Z: 50, Time: t0}
	b := model.Waypoint{X: 90, Y: 50, Z: 50, Time: t0.Add(30 * time.Second)}

	if got, want := Proximity(a, b, 0), Distance3D(a, b); got != want {
		t.Fatalf("Proximity(w=0) = %v, want %v", got, want)
	}
	if got := Proximity(a, b, 0); math.Abs(got-28.2842712) > 1e-6 {
		t.Fatalf("Proximity(w=0) = %v, want ~28.28", got)
	}
}

func TestProximity_SameInstantIsSpatial(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	a := model.Waypoint{X: 0, Y: 0, Z: 0, Time: t0}
	b := model.Waypoint{X: 3, Y: 4, Z: 0, Time: t0}
	if got := Proximity(a, b, 5); got != 5 {
		t.Fatalf("Proximity at same instant = %v, want 5", got)
	}
}

func TestProximity_WeightsTimeOffset(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	a := model.Waypoint{X: 0, Y: 0, Z: 0, Time: t0}
	b := model.Waypoint{X: 3, Y: 0, Z: 0, Time: t0.Add(2 * time.Second)}
	// sqrt(3² + (2·2)²) = 5
	if got := Proximity(a, b, 2); math.Abs(got-5) > 1e-12 {
		t.Fatalf("Proximity = %v, want 5", got)
	}
}
