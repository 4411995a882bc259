package vesting

import (
	"context"
	"sync"
	"time"
)

// Clock supplies the current time in Unix seconds.
type Clock interface {
	Now(ctx context.Context) (int64, error)
}

// SystemClock reads the local wall clock.
type SystemClock struct{}

// Now returns time.Now in Unix seconds.
func (SystemClock) Now(context.Context) (int64, error) {
	return time.Now().Unix(), nil
}

// FixedClock is a manually driven clock for tests and replays.
type FixedClock struct {
	mu  sync.Mutex
	now int64
}

// NewFixedClock creates a clock stopped at now.
func NewFixedClock(now int64) *FixedClock {
	return &FixedClock{now: now}
}

// Now returns the current fixed time.
func (c *FixedClock) Now(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now, nil
}

// Set moves the clock to now.
func (c *FixedClock) Set(now int64) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Advance moves the clock forward by d seconds.
func (c *FixedClock) Advance(d int64) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}
