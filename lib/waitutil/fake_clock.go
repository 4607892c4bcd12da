package waitutil

import (
	"context"
	"time"
)

// FakeClock advances instantly on Sleep. It exists so extraction and
// load-wait logic can be tested without real sleeps.
type FakeClock struct {
	now time.Time
	// Slept accumulates every requested sleep duration.
	Slept []time.Duration
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time { return c.now }

func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	c.now = c.now.Add(d)
	c.Slept = append(c.Slept, d)
	return nil
}
