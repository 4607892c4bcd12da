package waitutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestForSucceedsAfterPolls(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	calls := 0

	ok, err := For(context.Background(), Options{
		Interval: time.Second,
		Max:      time.Second * 10,
		Clock:    clock,
	}, func() (bool, error) {
		calls++
		return calls >= 4, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, ok)
	require.Equal(t, 4, calls)
	require.Len(t, clock.Slept, 3)
}

func TestForDeadline(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	calls := 0

	ok, err := For(context.Background(), Options{
		Interval: time.Second,
		Max:      time.Second * 5,
		Clock:    clock,
	}, func() (bool, error) {
		calls++
		return false, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, ok)
	// one initial evaluation plus one per elapsed interval
	require.Equal(t, 6, calls)
}

func TestForPredicateError(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))

	ok, err := For(context.Background(), Options{Clock: clock}, func() (bool, error) {
		return false, fmt.Errorf("page is gone")
	})
	require.Error(t, err)
	require.False(t, ok)
	require.Empty(t, clock.Slept)
}

func TestForCancelledContext(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := For(ctx, Options{Clock: clock}, func() (bool, error) {
		return false, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, ok)
}
