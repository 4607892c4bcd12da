package browserutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTurnQueueSerializes(t *testing.T) {
	var q TurnQueue
	var mu sync.Mutex
	var events []string

	record := func(e string) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{}, 2)

	go func() {
		q.Wait()
		record("a:start")
		close(started)
		<-release
		record("a:end")
		q.Release()
		done <- struct{}{}
	}()

	<-started
	go func() {
		// issued while A still holds the turn
		q.Wait()
		record("b:start")
		record("b:end")
		q.Release()
		done <- struct{}{}
	}()

	// give B a chance to (incorrectly) start early
	time.Sleep(10 * time.Millisecond)
	close(release)
	<-done
	<-done

	require.Equal(t, []string{"a:start", "a:end", "b:start", "b:end"}, events)
}

func TestTurnQueueFIFOOrder(t *testing.T) {
	var q TurnQueue
	var mu sync.Mutex
	var order []int

	q.Wait()

	var wg sync.WaitGroup
	enqueued := make(chan struct{})
	for i := 1; i <= 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			enqueued <- struct{}{}
			q.Wait()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			q.Release()
		}(i)
		// ensure goroutine i reaches Wait before i+1 launches
		<-enqueued
		time.Sleep(5 * time.Millisecond)
	}

	q.Release()
	wg.Wait()

	require.Equal(t, []int{1, 2, 3, 4, 5}, order)
}

func TestTurnQueueIdleAfterDrain(t *testing.T) {
	var q TurnQueue
	q.Wait()
	q.Release()

	// an idle queue grants the turn immediately
	acquired := make(chan struct{})
	go func() {
		q.Wait()
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("turn was not granted on an idle queue")
	}
	q.Release()
}
