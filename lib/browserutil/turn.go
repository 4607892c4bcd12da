package browserutil

import "sync"

// TurnQueue is a strict-FIFO mutual exclusion gate. A plain mutex or a
// channel semaphore would wake a random waiter; the shared browser's
// window and cookie state means scrapes must run strictly in arrival
// order. A waiter cannot abandon the queue once enqueued; callers that
// need a bound should time out above this layer.
type TurnQueue struct {
	mu      sync.Mutex
	busy    bool
	waiters []chan struct{}
}

// Wait blocks until it is the caller's turn.
func (q *TurnQueue) Wait() {
	q.mu.Lock()
	if !q.busy {
		q.busy = true
		q.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	q.waiters = append(q.waiters, ch)
	q.mu.Unlock()
	<-ch
}

// Release hands the turn to the oldest waiter, or marks the queue idle.
func (q *TurnQueue) Release() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.waiters) == 0 {
		q.busy = false
		return
	}
	next := q.waiters[0]
	q.waiters = q.waiters[1:]
	close(next)
}
