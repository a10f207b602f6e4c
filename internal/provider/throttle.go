package provider

import (
	"context"
	"sync"
	"time"
)

// Throttle enforces a minimum delay between consecutive provider API calls, as
// a safety margin under the provider's published rate limit. The delay is
// applied before each call, never after, so the first call in a run is not
// artificially delayed.
type Throttle struct {
	mu    sync.Mutex
	min   time.Duration
	last  time.Time
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewThrottle(min time.Duration) *Throttle {
	return &Throttle{
		min:   min,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Wait blocks until at least the minimum interval has passed since the
// previous call, or the context is done.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.last.IsZero() {
		elapsed := t.now().Sub(t.last)
		if wait := t.min - elapsed; wait > 0 {
			if err := t.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	t.last = t.now()
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
