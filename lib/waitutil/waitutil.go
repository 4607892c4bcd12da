// Package waitutil provides the single polling primitive used for every
// "wait until the page looks right" operation. Keeping the interval,
// deadline and clock injectable means timing-sensitive callers can be
// tested against a fake clock instead of real sleeps.
package waitutil

import (
	"context"
	"time"
)

type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var Real Clock = realClock{}

type Options struct {
	// Interval between predicate evaluations. Zero defaults to 500ms.
	Interval time.Duration
	// Max is the overall deadline. Zero defaults to 30s.
	Max time.Duration
	// Clock defaults to the wall clock.
	Clock Clock
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = 500 * time.Millisecond
	}
	if o.Max <= 0 {
		o.Max = 30 * time.Second
	}
	if o.Clock == nil {
		o.Clock = Real
	}
}

// For polls predicate until it reports true, the deadline passes, or ctx
// is cancelled. The predicate runs at least once even with a zero Max.
// Returns whether the predicate ever succeeded; a predicate error stops
// polling immediately.
func For(ctx context.Context, opts Options, predicate func() (bool, error)) (bool, error) {
	opts.defaults()

	deadline := opts.Clock.Now().Add(opts.Max)
	for {
		ok, err := predicate()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if opts.Clock.Now().Add(opts.Interval).After(deadline) {
			return false, nil
		}
		if err := opts.Clock.Sleep(ctx, opts.Interval); err != nil {
			return false, err
		}
	}
}
