package testutil

import (
	"fmt"
	"sync"
)

// DeterministicClock provides a thread-safe monotonic counter for tests.
//
// Unlike engine.Clock, DeterministicClock can be reset, so the same scenario
// can run several times with identical numbering.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock starting at 0.
// The first call to Next() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset sets the clock back to 0.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}

// SequentialIDs generates "prefix-1", "prefix-2", ... run IDs.
// It satisfies engine.IDGenerator and never runs out.
type SequentialIDs struct {
	prefix string
	clock  *DeterministicClock
}

// NewSequentialIDs creates a generator; an empty prefix becomes "run".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialIDs{prefix: prefix, clock: NewDeterministicClock()}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.clock.Next())
}

// Reset restarts numbering at 1.
func (g *SequentialIDs) Reset() {
	g.clock.Reset()
}
