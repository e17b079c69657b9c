package timectrl

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Clock is the time source used for snapshot timestamps and staleness
// checks. Production wiring uses WallClock; simulations share a
// TimeController between the feed and the readers.
type Clock interface {
	Now() time.Time
}

// WallClock reads the system clock.
type WallClock struct{}

func (WallClock) Now() time.Time { return time.Now() }

// Mode describes how the TimeController advances time.
type Mode int

const (
	// RealTime advances one tick per wall-clock tick.
	RealTime Mode = iota
	// Accelerated advances as quickly as listeners allow.
	Accelerated
)

// TimeController drives simulated time and notifies listeners on every tick.
// It implements Clock.
type TimeController struct {
	mu        sync.RWMutex
	tick      time.Duration
	mode      Mode
	current   time.Time
	listeners []func(time.Time)
}

// NewTimeController constructs a controller starting at start.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		tick:    tick,
		mode:    mode,
		current: start,
	}
}

// Now returns the current simulated time.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.current
}

// SetTime moves the clock without notifying listeners.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.current = t
}

// AddListener registers a callback invoked after every tick.
func (tc *TimeController) AddListener(fn func(time.Time)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Step advances by one tick and runs the listeners synchronously.
func (tc *TimeController) Step() time.Time {
	tc.mu.Lock()
	tc.current = tc.current.Add(tc.tick)
	now := tc.current
	listeners := append([]func(time.Time){}, tc.listeners...)
	tc.mu.Unlock()

	for _, fn := range listeners {
		fn(now)
	}
	return now
}

// Run steps the controller until ctx is done or, when duration is positive,
// until that much simulated time has elapsed. It returns ctx.Err() on
// cancellation and nil when the duration completes.
func (tc *TimeController) Run(ctx context.Context, duration time.Duration) error {
	var elapsed time.Duration
	var ticks <-chan time.Time
	if tc.mode == RealTime {
		ticker := time.NewTicker(tc.tick)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		if duration > 0 && elapsed >= duration {
			return nil
		}
		if ticks != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticks:
			}
		} else {
			if err := ctx.Err(); err != nil {
				return err
			}
			runtime.Gosched()
		}
		tc.Step()
		elapsed += tc.tick
	}
}
