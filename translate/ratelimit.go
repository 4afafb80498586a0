package translate

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Clock
// ---------------------------------------------------------------------------

// Clock abstracts time so the limiter and retry loops can be tested.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ---------------------------------------------------------------------------
// Rate limiter
// ---------------------------------------------------------------------------

// LimiterConfig configures a RateLimiter. Zero values take the defaults
// (25/min, 1000/h, 1.5s to 3s delay, 30s backoff ceiling).
type LimiterConfig struct {
	PerMinute  int
	PerHour    int
	MinDelay   time.Duration
	MaxDelay   time.Duration
	MaxBackoff time.Duration
}

func (c LimiterConfig) withDefaults() LimiterConfig {
	if c.PerMinute == 0 {
		c.PerMinute = 25
	}
	if c.PerHour == 0 {
		c.PerHour = 1000
	}
	if c.MinDelay == 0 {
		c.MinDelay = 1500 * time.Millisecond
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 3 * time.Second
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 30 * time.Second
	}
	return c
}

// RateLimitState is a snapshot of the limiter counters.
type RateLimitState struct {
	RequestsThisMinute int
	RequestsThisHour   int
	CurrentDelay       time.Duration
	ConsecutiveErrors  int
	// BlockedPeriods counts waits caused by the hourly ceiling.
	BlockedPeriods int
}

// RateLimiter enforces rolling one-minute and one-hour request ceilings and
// an adaptive delay between consecutive requests. Success shrinks the delay
// towards MinDelay; failure grows it exponentially up to MaxBackoff. The
// actual pause is the delay scaled by a random factor in [0.8, 1.2).
type RateLimiter struct {
	mu     sync.Mutex
	cfg    LimiterConfig
	clock  Clock
	jitter func() float64

	delay    time.Duration
	errors   int
	blocked  int
	requests []time.Time
	last     time.Time
}

// NewRateLimiter returns a limiter using clock (SystemClock when nil).
func NewRateLimiter(cfg LimiterConfig, clock Clock) *RateLimiter {
	cfg = cfg.withDefaults()
	if clock == nil {
		clock = SystemClock
	}
	return &RateLimiter{
		cfg:    cfg,
		clock:  clock,
		jitter: func() float64 { return 0.8 + rand.Float64()*0.4 },
		delay:  cfg.MinDelay,
	}
}

// Wait blocks until a request may be sent and records it.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		d := r.windowWait()
		if d <= 0 {
			break
		}
		if err := r.clock.Sleep(ctx, d); err != nil {
			return err
		}
	}

	r.mu.Lock()
	var pause time.Duration
	if !r.last.IsZero() {
		target := time.Duration(float64(r.delay) * r.jitter())
		pause = target - r.clock.Now().Sub(r.last)
	}
	r.mu.Unlock()

	if pause > 0 {
		if err := r.clock.Sleep(ctx, pause); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = r.clock.Now()
	r.requests = append(r.requests, r.last)
	return nil
}

// windowWait prunes old requests and returns how long to wait for a free
// slot in both windows.
func (r *RateLimiter) windowWait() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	r.prune(now)

	var wait time.Duration
	if n := r.countSince(now.Add(-time.Minute)); n >= r.cfg.PerMinute {
		oldest := r.requests[len(r.requests)-n]
		wait = oldest.Add(time.Minute).Sub(now)
	}
	if len(r.requests) >= r.cfg.PerHour {
		if w := r.requests[0].Add(time.Hour).Sub(now); w > wait {
			wait = w
			r.blocked++
		}
	}
	return wait
}

func (r *RateLimiter) prune(now time.Time) {
	cut := now.Add(-time.Hour)
	i := 0
	for i < len(r.requests) && !r.requests[i].After(cut) {
		i++
	}
	r.requests = r.requests[i:]
}

func (r *RateLimiter) countSince(t time.Time) int {
	n := 0
	for i := len(r.requests) - 1; i >= 0 && r.requests[i].After(t); i-- {
		n++
	}
	return n
}

// Success records a successful request.
func (r *RateLimiter) Success() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = 0
	r.delay = max(r.cfg.MinDelay, time.Duration(float64(r.delay)*0.9))
}

// Failure records a failed request.
func (r *RateLimiter) Failure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors++
	factor := 8.0
	if r.errors < 3 {
		factor = float64(int(1) << r.errors)
	}
	r.delay = min(time.Duration(float64(r.cfg.MaxDelay)*factor), r.cfg.MaxBackoff)
}

// State returns a snapshot of the counters.
func (r *RateLimiter) State() RateLimitState {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	return RateLimitState{
		RequestsThisMinute: r.countSince(now.Add(-time.Minute)),
		RequestsThisHour:   r.countSince(now.Add(-time.Hour)),
		CurrentDelay:       r.delay,
		ConsecutiveErrors:  r.errors,
		BlockedPeriods:     r.blocked,
	}
}
