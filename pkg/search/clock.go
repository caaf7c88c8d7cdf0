package search

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so search timeouts are deterministic in tests
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Ticker delivers periodic ticks to subscribers
type Ticker interface {
	// Subscribe calls fn on every tick until the returned stop func is called
	Subscribe(fn func(now time.Time)) (stop func())
}

// IntervalTicker is a Ticker backed by time.Ticker
type IntervalTicker struct {
	Interval time.Duration
}

// Subscribe starts a goroutine calling fn every Interval
func (t IntervalTicker) Subscribe(fn func(now time.Time)) func() {
	interval := t.Interval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case now := <-ticker.C:
				fn(now)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// TokenSource produces correlation tokens for network searches
type TokenSource interface {
	New() string
}

// UUIDTokens produces random UUID tokens
type UUIDTokens struct{}

func (UUIDTokens) New() string { return uuid.New().String() }
