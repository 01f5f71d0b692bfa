package store

import "sync/atomic"

// Clock is the store's monotonic logical clock.
//
// Every write is stamped with a strictly increasing seq from this clock, so
// triple history orders deterministically without wall-clock races.
//
// Clock is safe for concurrent use, though the store only advances it while
// holding its write lock.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from a known sequence number.
// Open uses it to continue after the highest stored seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
