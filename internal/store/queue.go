package store

import "sync"

// change is one unit of work for the dispatcher: either a committed write to
// a collection or a newly added subscription that needs its first snapshot.
type change struct {
	collection   string
	subscription int64
}

// changeQueue is a thread-safe unbounded FIFO queue of changes.
//
// Writers enqueue after commit without ever blocking on slow subscribers;
// the dispatcher drains the queue in batches so a burst of writes to one
// collection costs one refresh per subscription.
//
// The queue uses a channel for signaling to enable context-aware waiting in
// the dispatch loop.
type changeQueue struct {
	mu      sync.Mutex
	changes []change
	closed  bool
	signal  chan struct{} // Signals change availability (buffered, size 1)
}

func newChangeQueue() *changeQueue {
	return &changeQueue{
		changes: make([]change, 0, 64),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds a change to the back of the queue.
// Returns false if the queue is closed.
func (q *changeQueue) Enqueue(c change) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.changes = append(q.changes, c)

	// Non-blocking: the buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// Drain removes and returns every queued change in FIFO order.
// Returns nil when the queue is empty.
func (q *changeQueue) Drain() []change {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.changes) == 0 {
		return nil
	}

	batch := q.changes
	q.changes = make([]change, 0, cap(batch))
	return batch
}

// Wait returns a channel that signals when changes may be available.
// The channel is closed once the queue is closed.
func (q *changeQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *changeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.changes)
}

// Close signals that no more changes will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *changeQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *changeQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
