package search

import (
	"sync"
	"time"
)

// Outcome is the state of a network search
type Outcome string

const (
	// OutcomePending indicates the search is still collecting results
	OutcomePending Outcome = "pending"
	// OutcomeFinished indicates the search ended with results
	OutcomeFinished Outcome = "finished"
	// OutcomeEmpty indicates the peer reported completion without results
	OutcomeEmpty Outcome = "empty"
	// OutcomeTimedOut indicates no result arrived in time
	OutcomeTimedOut Outcome = "timed-out"
)

// Default thresholds of a network search
const (
	DefaultNoResultTimeout = 5 * time.Second
	DefaultIdleTimeout     = 1 * time.Second
)

// TrackerConfig holds the thresholds of a Tracker
type TrackerConfig struct {
	// NoResultTimeout ends a search that received nothing for this long
	NoResultTimeout time.Duration

	// IdleTimeout ends a search once no new result arrived for this long
	IdleTimeout time.Duration
}

// Tracker aggregates the results of one network search at a time.
//
// Results and the completion count arrive from transport callbacks while
// Tick is driven by a periodic timer, so every method is safe for
// concurrent use. A search finishes exactly once: the first call that
// returns an outcome other than OutcomePending ends it and later events
// for the same token are ignored.
type Tracker struct {
	mu         sync.Mutex
	cfg        TrackerConfig
	token      string
	active     bool
	started    time.Time
	lastResult time.Time
	received   int
	expected   int
	endOnTick  bool
	results    *ResultSet
}

// NewTracker creates an idle tracker; zero thresholds take the defaults
func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.NoResultTimeout <= 0 {
		cfg.NoResultTimeout = DefaultNoResultTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &Tracker{cfg: cfg, expected: -1, results: NewResultSet()}
}

// Begin starts collecting results for token, discarding any previous search
func (t *Tracker) Begin(token string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.token = token
	t.active = true
	t.started = now
	t.lastResult = now
	t.received = 0
	t.expected = -1
	t.endOnTick = false
	t.results.Reset()
}

// AddResult records a result path. It reports whether the event belonged
// to the running search.
func (t *Tracker) AddResult(token, path string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active || token != t.token {
		return false
	}
	t.lastResult = now
	if t.results.Insert(path) {
		t.received++
	}
	if t.expected == t.received {
		t.endOnTick = true
	}
	return true
}

// Complete records the number of results the peer reported. The search
// ends at once when everything has been received.
func (t *Tracker) Complete(token string, expected int) Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active || token != t.token {
		return OutcomePending
	}
	t.expected = expected
	if expected != t.received {
		return OutcomePending
	}
	t.active = false
	if t.received == 0 {
		return OutcomeEmpty
	}
	return OutcomeFinished
}

// Tick applies the timeouts at time now
func (t *Tracker) Tick(now time.Time) Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return OutcomePending
	}

	switch {
	case t.endOnTick:
	case t.received == 0:
		if now.Sub(t.started) < t.cfg.NoResultTimeout {
			return OutcomePending
		}
		t.active = false
		return OutcomeTimedOut
	case now.Sub(t.lastResult) < t.cfg.IdleTimeout:
		return OutcomePending
	}

	t.active = false
	if t.received == 0 {
		return OutcomeEmpty
	}
	return OutcomeFinished
}

// Cancel ends the running search without an outcome
func (t *Tracker) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = false
}

// Active reports whether a search is collecting results
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Token returns the token of the current or last search
func (t *Tracker) Token() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.token
}

// Received returns the number of distinct results collected
func (t *Tracker) Received() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.received
}

// Results returns the result set of the current or last search
func (t *Tracker) Results() *ResultSet {
	return t.results
}
