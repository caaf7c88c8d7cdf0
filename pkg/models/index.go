package models

import (
	"strings"
)

// IndexEntry is the state kept for one indexed directory
type IndexEntry struct {
	Dir     *Directory
	Visited bool
}

// PathIndex maps lower-cased canonical paths to directories of one tree.
// Visited tells whether a merge has already been applied at that path.
//
// PathIndex is not safe for concurrent use; the owning listing serializes
// access.
type PathIndex struct {
	entries map[string]*IndexEntry
}

// NewPathIndex creates an empty index
func NewPathIndex() *PathIndex {
	return &PathIndex{entries: make(map[string]*IndexEntry)}
}

// Lookup returns the entry registered for path
func (idx *PathIndex) Lookup(path string) (*IndexEntry, bool) {
	e, ok := idx.entries[LowerPath(path)]
	return e, ok
}

// Register records dir under path. An existing entry keeps its visited flag.
func (idx *PathIndex) Register(path string, dir *Directory, visited bool) {
	key := LowerPath(path)
	if e, ok := idx.entries[key]; ok {
		e.Dir = dir
		e.Visited = e.Visited || visited
		return
	}
	idx.entries[key] = &IndexEntry{Dir: dir, Visited: visited}
}

// MarkVisited flags path as merged. It is a no-op for unknown paths.
func (idx *PathIndex) MarkVisited(path string) {
	if e, ok := idx.entries[LowerPath(path)]; ok {
		e.Visited = true
	}
}

// IsVisited reports whether a merge was already applied at path
func (idx *PathIndex) IsVisited(path string) bool {
	e, ok := idx.entries[LowerPath(path)]
	return ok && e.Visited
}

// RemoveBelow drops every entry strictly below prefix
func (idx *PathIndex) RemoveBelow(prefix string) {
	p := LowerPath(prefix)
	for key := range idx.entries {
		if len(key) > len(p) && strings.HasPrefix(key, p) {
			delete(idx.entries, key)
		}
	}
}

// Clear drops every entry
func (idx *PathIndex) Clear() {
	idx.entries = make(map[string]*IndexEntry)
}

// Prune drops entries whose directory is no longer reachable from root
func (idx *PathIndex) Prune(root *Directory) int {
	removed := 0
	for key, e := range idx.entries {
		if e.Dir == nil || !e.Dir.IsAttached(root) {
			delete(idx.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries
func (idx *PathIndex) Len() int {
	return len(idx.entries)
}
