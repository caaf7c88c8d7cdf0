package testutil

import (
	"fmt"
	"sync"
	"time"
)

// StubClock returns a fixed time. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock set to the given time.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2024-01-15 10:30:00 UTC.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ManualTicker delivers ticks only when Fire is called.
type ManualTicker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(time.Time)
}

// NewManualTicker creates a ticker without subscribers.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{subs: make(map[int]func(time.Time))}
}

func (t *ManualTicker) Subscribe(fn func(now time.Time)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
	}
}

// Fire calls every current subscriber with now.
func (t *ManualTicker) Fire(now time.Time) {
	t.mu.Lock()
	fns := make([]func(time.Time), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(now)
	}
}

// Subscribers returns the number of active subscriptions.
func (t *ManualTicker) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// StubTokens returns sequential tokens: "token-1", "token-2", etc.
type StubTokens struct {
	mu      sync.Mutex
	counter int
}

func NewStubTokens() *StubTokens {
	return &StubTokens{}
}

func (g *StubTokens) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("token-%d", g.counter)
}
