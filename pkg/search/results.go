package search

import (
	"sync"
)

// ResultSet holds result paths in discovery order without duplicates.
// It is safe for concurrent use.
type ResultSet struct {
	mu    sync.RWMutex
	paths []string
	seen  map[string]struct{}
}

// NewResultSet creates an empty result set
func NewResultSet() *ResultSet {
	return &ResultSet{seen: make(map[string]struct{})}
}

// Insert adds path unless it is already present. It reports whether the
// path was added.
func (rs *ResultSet) Insert(path string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, ok := rs.seen[path]; ok {
		return false
	}
	rs.seen[path] = struct{}{}
	rs.paths = append(rs.paths, path)
	return true
}

// Contains reports whether path was inserted
func (rs *ResultSet) Contains(path string) bool {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	_, ok := rs.seen[path]
	return ok
}

// Len returns the number of results
func (rs *ResultSet) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.paths)
}

// Paths returns a copy of the results in discovery order
func (rs *ResultSet) Paths() []string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return append([]string(nil), rs.paths...)
}

// At returns the result at position i
func (rs *ResultSet) At(i int) (string, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	if i < 0 || i >= len(rs.paths) {
		return "", false
	}
	return rs.paths[i], true
}

// Reset removes every result
func (rs *ResultSet) Reset() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.paths = nil
	rs.seen = make(map[string]struct{})
}

// Cursor navigates the results of a ResultSet
type Cursor struct {
	set *ResultSet
	pos int
}

// NewCursor creates a cursor before the first result of set
func NewCursor(set *ResultSet) *Cursor {
	return &Cursor{set: set, pos: -1}
}

// First moves to the first result
func (c *Cursor) First() (string, bool) {
	c.pos = 0
	p, ok := c.set.At(0)
	if !ok {
		c.pos = -1
	}
	return p, ok
}

// Current returns the result under the cursor
func (c *Cursor) Current() (string, bool) {
	return c.set.At(c.pos)
}

// Advance moves one result forward, or backward when prev is set.
// At either end it stays put and returns false.
func (c *Cursor) Advance(prev bool) (string, bool) {
	next := c.pos + 1
	if prev {
		next = c.pos - 1
	}
	p, ok := c.set.At(next)
	if !ok {
		return "", false
	}
	c.pos = next
	return p, true
}
