package timectrl

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Clock exposes the controller's current simulated time.
type Clock interface {
	Now() time.Time
}

// Mode describes how the TimeController advances simulated time.
type Mode int

const (
	// RealTime paces each tick against the wall clock.
	RealTime Mode = iota
	// Accelerated steps as fast as listeners allow. Output is identical to
	// RealTime; only pacing differs.
	Accelerated
)

// Listener is invoked once per simulated instant. A non-nil error stops the run.
type Listener func(time.Time) error

// TimeController steps simulated time across an interval and notifies
// registered listeners at every tick.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	currentTime time.Time

	listeners []Listener
}

// NewTimeController constructs a controller.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
	}
}

// Now returns the current simulated time. Implements Clock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime moves the current simulated time without notifying listeners.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// AddListener registers a callback invoked on every tick.
func (tc *TimeController) AddListener(fn Listener) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Run steps from StartTime to end inclusive. Instants are StartTime + k*Tick;
// when end is not on the grid a final step lands exactly on end. It returns
// the number of instants delivered.
func (tc *TimeController) Run(ctx context.Context, end time.Time) (int, error) {
	if tc.Tick <= 0 {
		return 0, fmt.Errorf("tick must be positive, got %s", tc.Tick)
	}
	if end.Before(tc.StartTime) {
		return 0, fmt.Errorf("end %s precedes start %s", end.Format(time.RFC3339), tc.StartTime.Format(time.RFC3339))
	}

	tc.mu.RLock()
	listeners := append([]Listener{}, tc.listeners...)
	tc.mu.RUnlock()

	var ticker *time.Ticker
	if tc.Mode == RealTime {
		ticker = time.NewTicker(tc.Tick)
		defer ticker.Stop()
	}

	steps := 0
	for k := 0; ; k++ {
		simTime := tc.StartTime.Add(time.Duration(k) * tc.Tick)
		last := !simTime.Before(end)
		if last {
			simTime = end
		}

		if k > 0 && ticker != nil {
			select {
			case <-ctx.Done():
				return steps, ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return steps, err
		}

		tc.SetTime(simTime)
		for _, fn := range listeners {
			if err := fn(simTime); err != nil {
				return steps, fmt.Errorf("listener at %s: %w", simTime.Format(time.RFC3339Nano), err)
			}
		}
		steps++
		if last {
			return steps, nil
		}
	}
}

// Start runs the controller up to end in a separate goroutine. The returned
// channel yields the run's error (nil on success) and is then closed.
func (tc *TimeController) Start(ctx context.Context, end time.Time) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		_, err := tc.Run(ctx, end)
		done <- err
	}()
	return done
}
