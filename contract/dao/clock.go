package dao

import (
	"sync"
	"time"
)

// Clock supplies the unix-second timestamp an operation runs at.
type Clock interface {
	Now() int64
}

// SystemClock reads wall time.
type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }

// ClockFunc adapts a function, e.g. a block timestamp lookup.
type ClockFunc func() int64

func (f ClockFunc) Now() int64 { return f() }

// ManualClock only moves when told to. Tests and scenarios drive windows with it.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

func NewManualClock(start int64) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by secs.
func (c *ManualClock) Advance(secs int64) {
	c.mu.Lock()
	c.now += secs
	c.mu.Unlock()
}

func (c *ManualClock) Set(now int64) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}
