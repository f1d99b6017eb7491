package types

import (
	"sync"
	"time"
)

/*
Tick is a monotonic timestamp: nanoseconds elapsed since the clock's epoch.

Expiration and eviction compare ticks with plain integer arithmetic, so there is no
parsing and no wall-clock or timezone ambiguity involved.
*/
type Tick int64

// Duration converts a tick difference into a time.Duration.
func (t Tick) Duration() time.Duration { return time.Duration(t) }

// TickOf converts a duration into a tick difference.
func TickOf(d time.Duration) Tick { return Tick(d) }

// Clock hands out ticks. The engine reads it once per operation.
type Clock interface {
	Now() Tick
}

// MonotonicClock measures ticks from its creation using the runtime's monotonic clock.
type MonotonicClock struct {
	epoch time.Time
}

// NewMonotonicClock returns a clock whose epoch is now.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{epoch: time.Now()}
}

// Now returns the ticks elapsed since the epoch.
func (c *MonotonicClock) Now() Tick {
	return Tick(time.Since(c.epoch))
}

// ManualClock only moves when told to. Tests use it to hit exact TTL boundaries.
type ManualClock struct {
	mu  sync.Mutex
	now Tick
}

// Now returns the current manual tick.
func (c *ManualClock) Now() Tick {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += TickOf(d)
	c.mu.Unlock()
}
