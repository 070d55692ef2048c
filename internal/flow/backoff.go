package flow

import (
	"context"
	"time"
)

const (
	DefaultBackoffFloor   = time.Millisecond
	DefaultBackoffCeiling = 32 * time.Millisecond
)

// Backoff is the sleep interval of a polling worker. It doubles after every
// idle pass and halves after every busy one, staying within [floor, ceiling].
type Backoff struct {
	floor, ceiling time.Duration
	current        time.Duration
}

func NewBackoff(floor, ceiling time.Duration) *Backoff {
	if floor <= 0 {
		floor = DefaultBackoffFloor
	}
	if ceiling < floor {
		ceiling = floor
	}
	return &Backoff{floor: floor, ceiling: ceiling, current: floor}
}

// Busy records a pass that found work.
func (b *Backoff) Busy() {
	b.current /= 2
	if b.current < b.floor {
		b.current = b.floor
	}
}

// Wait sleeps for the current interval, then grows it. It returns early
// with the context error on cancellation.
func (b *Backoff) Wait(ctx context.Context) error {
	t := time.NewTimer(b.current)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	b.current *= 2
	if b.current > b.ceiling {
		b.current = b.ceiling
	}
	return nil
}

func (b *Backoff) Current() time.Duration { return b.current }
