package translate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestLimiter(cfg LimiterConfig) (*RateLimiter, *fakeClock) {
	clock := newFakeClock()
	rl := NewRateLimiter(cfg, clock)
	rl.jitter = func() float64 { return 1.0 }
	return rl, clock
}

func TestRateLimiterFirstRequestNotDelayed(t *testing.T) {
	rl, clock := newTestLimiter(LimiterConfig{})
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if s := clock.Sleeps(); len(s) != 0 {
		t.Fatalf("first Wait slept %v", s)
	}
}

func TestRateLimiterMinuteWindow(t *testing.T) {
	rl, clock := newTestLimiter(LimiterConfig{PerMinute: 2, PerHour: 100, MinDelay: time.Second, MaxDelay: 2 * time.Second})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	want := []time.Duration{time.Second, 59 * time.Second}
	if diff := cmp.Diff(want, clock.Sleeps()); diff != "" {
		t.Fatalf("sleeps mismatch (-want +got):\n%s", diff)
	}
	st := rl.State()
	if st.RequestsThisMinute != 2 || st.RequestsThisHour != 3 {
		t.Fatalf("State = %+v", st)
	}
}

func TestRateLimiterHourWindow(t *testing.T) {
	rl, clock := newTestLimiter(LimiterConfig{PerMinute: 100, PerHour: 2, MinDelay: time.Second, MaxDelay: time.Second})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	sleeps := clock.Sleeps()
	if len(sleeps) != 2 || sleeps[1] != time.Hour-time.Second {
		t.Fatalf("sleeps = %v, want [1s 59m59s]", sleeps)
	}
	if st := rl.State(); st.BlockedPeriods != 1 {
		t.Fatalf("BlockedPeriods = %d, want 1", st.BlockedPeriods)
	}
}

func TestRateLimiterAdaptiveDelay(t *testing.T) {
	rl, _ := newTestLimiter(LimiterConfig{MinDelay: 1500 * time.Millisecond, MaxDelay: 3 * time.Second})

	var got []time.Duration
	for i := 0; i < 4; i++ {
		rl.Failure()
		got = append(got, rl.State().CurrentDelay)
	}
	want := []time.Duration{6 * time.Second, 12 * time.Second, 24 * time.Second, 24 * time.Second}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("failure delays mismatch (-want +got):\n%s", diff)
	}
	if n := rl.State().ConsecutiveErrors; n != 4 {
		t.Fatalf("ConsecutiveErrors = %d, want 4", n)
	}

	rl.Success()
	st := rl.State()
	if st.ConsecutiveErrors != 0 {
		t.Fatalf("ConsecutiveErrors after success = %d", st.ConsecutiveErrors)
	}
	if want := time.Duration(float64(24*time.Second) * 0.9); st.CurrentDelay != want {
		t.Fatalf("delay after success = %v, want %v", st.CurrentDelay, want)
	}
	for i := 0; i < 100; i++ {
		rl.Success()
	}
	if d := rl.State().CurrentDelay; d != 1500*time.Millisecond {
		t.Fatalf("delay floor = %v, want 1.5s", d)
	}
}

func TestRateLimiterBackoffCeiling(t *testing.T) {
	rl, _ := newTestLimiter(LimiterConfig{MaxDelay: 10 * time.Second, MaxBackoff: 15 * time.Second})
	rl.Failure()
	rl.Failure()
	if d := rl.State().CurrentDelay; d != 15*time.Second {
		t.Fatalf("delay = %v, want ceiling 15s", d)
	}
}

func TestRateLimiterPacesWithCurrentDelay(t *testing.T) {
	rl, clock := newTestLimiter(LimiterConfig{MinDelay: time.Second, MaxDelay: 2 * time.Second})
	ctx := context.Background()
	_ = rl.Wait(ctx)
	rl.Failure() // delay = 4s
	_ = rl.Wait(ctx)
	if s := clock.Sleeps(); len(s) != 1 || s[0] != 4*time.Second {
		t.Fatalf("sleeps = %v, want [4s]", s)
	}
}

func TestRateLimiterJitterRange(t *testing.T) {
	rl := NewRateLimiter(LimiterConfig{}, newFakeClock())
	for i := 0; i < 1000; i++ {
		j := rl.jitter()
		if j < 0.8 || j >= 1.2 {
			t.Fatalf("jitter %v out of [0.8, 1.2)", j)
		}
	}
}

func TestRateLimiterWaitCancelled(t *testing.T) {
	rl, _ := newTestLimiter(LimiterConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	_ = rl.Wait(ctx)
	cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait after cancel = %v, want context.Canceled", err)
	}
}
