package limiter

import (
	"context"
	"sync"
	"time"
)

// RateLimiter caps how many calls may start within any one second.
type RateLimiter struct {
	requestTimes []time.Time
	maxRequests  int
	clock        Clock
	mu           sync.Mutex
}

func NewRateLimiter(maxRequests int, clock Clock) *RateLimiter {
	if clock == nil {
		clock = RealClock{}
	}
	return &RateLimiter{
		requestTimes: make([]time.Time, 0, maxRequests),
		maxRequests:  maxRequests,
		clock:        clock,
	}
}

// Allow records a call and returns true when the last second has room for it.
func (r *RateLimiter) Allow() bool {
	_, ok := r.reserve()
	return ok
}

func (r *RateLimiter) reserve() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	oneSecondAgo := now.Add(-1 * time.Second)

	// Drop calls older than one second
	validTimes := r.requestTimes[:0]
	for _, t := range r.requestTimes {
		if t.After(oneSecondAgo) {
			validTimes = append(validTimes, t)
		}
	}
	r.requestTimes = validTimes

	if len(r.requestTimes) < r.maxRequests {
		r.requestTimes = append(r.requestTimes, now)
		return 0, true
	}

	// Oldest call leaves the window first
	return r.requestTimes[0].Sub(oneSecondAgo), false
}

// Wait blocks until Allow would succeed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait, ok := r.reserve()
		if ok {
			return nil
		}
		if err := r.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}
