package engine

import "sync/atomic"

// Clock is a monotonic logical clock for trace step ordering.
//
// Every trace step of one run is stamped with a strictly increasing seq
// number. Wall-clock time is never used, so the same input always produces
// the same trace.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
