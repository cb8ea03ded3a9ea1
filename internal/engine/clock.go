package engine

import "sync/atomic"

// Clock is the logical tick counter. Every completed tick is stamped with
// the next value, so ticks form a strict total order independent of wall
// time.
//
// Clock is safe for concurrent use, although only the goroutine holding
// the engine lock advances it.
type Clock struct {
	tick atomic.Int64
}

// NewClock creates a clock at tick 0. The first tick is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start.
// Used by replay to line up with a recorded run.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.tick.Store(start)
	return c
}

// Next advances the clock and returns the new tick.
func (c *Clock) Next() int64 {
	return c.tick.Add(1)
}

// Current returns the last completed tick without advancing.
func (c *Clock) Current() int64 {
	return c.tick.Load()
}
