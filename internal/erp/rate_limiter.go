package erp

import (
	"context"
	"sync"
	"time"
)

// RateLimiter hands out request slots at most once per interval. A slot is
// reserved before waiting and returned if the caller gives up.
type RateLimiter struct {
	mu       sync.Mutex
	next     time.Time
	interval time.Duration

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &RateLimiter{
		interval: time.Second / time.Duration(requestsPerSecond),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// WaitTurn blocks until the caller's slot comes up and reports how long it waited.
func (r *RateLimiter) WaitTurn(ctx context.Context) (time.Duration, error) {
	r.mu.Lock()
	now := r.now()
	slot := now
	if r.next.After(now) {
		slot = r.next
	}
	r.next = slot.Add(r.interval)
	r.mu.Unlock()

	wait := slot.Sub(now)
	if err := r.sleep(ctx, wait); err != nil {
		r.release(slot)
		return 0, err
	}
	return wait, nil
}

// release gives a cancelled slot back when no later caller has reserved after it.
func (r *RateLimiter) release(slot time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.next.Equal(slot.Add(r.interval)) {
		r.next = slot
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
