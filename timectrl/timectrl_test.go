package timectrl

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTimeControllerSetTime(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Second, RealTime)

	newNow := start.Add(42 * time.Second)
	tc.SetTime(newNow)

	if got := tc.Now(); !got.Equal(newNow) {
		t.Fatalf("Now() = %v, want %v", got, newNow)
	}
}

func TestTimeControllerStepNotifiesListeners(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 100*time.Millisecond, Accelerated)

	var seen []time.Time
	tc.AddListener(func(now time.Time) { seen = append(seen, now) })

	tc.Step()
	tc.Step()

	if len(seen) != 2 {
		t.Fatalf("listener called %d times, want 2", len(seen))
	}
	if want := start.Add(200 * time.Millisecond); !seen[1].Equal(want) || !tc.Now().Equal(want) {
		t.Fatalf("after two steps got listener=%v now=%v, want %v", seen[1], tc.Now(), want)
	}
}

func TestTimeControllerRunForDuration(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 5*time.Millisecond, Accelerated)

	if err := tc.Run(context.Background(), 15*time.Millisecond); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expected := start.Add(15 * time.Millisecond)
	if got := tc.Now(); !got.Equal(expected) {
		t.Fatalf("Now() = %v, want %v", got, expected)
	}
}

func TestTimeControllerRunStopsOnCancel(t *testing.T) {
	tc := NewTimeController(time.Unix(0, 0), time.Millisecond, RealTime)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := tc.Run(ctx, 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run error = %v, want deadline exceeded", err)
	}
	if !tc.Now().After(time.Unix(0, 0)) {
		t.Fatalf("expected simulated time to advance before cancellation")
	}
}

func TestWallClock(t *testing.T) {
	before := time.Now()
	got := WallClock{}.Now()
	if got.Before(before) {
		t.Fatalf("WallClock.Now() = %v is before %v", got, before)
	}
}
