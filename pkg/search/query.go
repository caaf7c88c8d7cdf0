package search

import (
	"regexp"
	"strings"
	"time"
)

// SizeMode tells how a query size bounds matched items
type SizeMode string

const (
	// SizeAny ignores the size
	SizeAny SizeMode = "any"
	// SizeAtLeast matches items of at least the size
	SizeAtLeast SizeMode = "at-least"
	// SizeAtMost matches items of at most the size
	SizeAtMost SizeMode = "at-most"
	// SizeExact matches items of exactly the size
	SizeExact SizeMode = "exact"
)

// ItemType restricts the kind of matched items
type ItemType string

const (
	// TypeAny matches files and directories
	TypeAny ItemType = "any"
	// TypeFile matches files only
	TypeFile ItemType = "file"
	// TypeDirectory matches directories only
	TypeDirectory ItemType = "directory"
)

var tthPattern = regexp.MustCompile(`^[A-Z2-7]{39}$`)

// IsTTH reports whether s is a base32 encoded content hash
func IsTTH(s string) bool {
	return tthPattern.MatchString(s)
}

// Options describes a search request
type Options struct {
	// Text holds whitespace separated terms; "-term" excludes,
	// "TTH:<hash>" or a bare hash searches by content
	Text string

	// Size is the size bound, used with SizeMode
	Size int64

	// SizeMode selects how Size is applied
	SizeMode SizeMode

	// Type restricts matches to files or directories
	Type ItemType

	// Extensions restricts file matches; empty matches every extension
	Extensions []string

	// MinDate and MaxDate bound file dates when set
	MinDate time.Time
	MaxDate time.Time
}

// Query is a compiled search request
type Query struct {
	include    []string
	exclude    []string
	root       string
	size       int64
	sizeMode   SizeMode
	itemType   ItemType
	extensions []string
	minDate    time.Time
	maxDate    time.Time
}

// NewQuery compiles opts
func NewQuery(opts Options) *Query {
	q := &Query{
		size:     opts.Size,
		sizeMode: opts.SizeMode,
		itemType: opts.Type,
		minDate:  opts.MinDate,
		maxDate:  opts.MaxDate,
	}
	if q.sizeMode == "" {
		q.sizeMode = SizeAny
	}
	if q.itemType == "" {
		q.itemType = TypeAny
	}

	text := strings.TrimSpace(opts.Text)
	if h, ok := cutPrefixFold(text, "TTH:"); ok && IsTTH(strings.TrimSpace(h)) {
		q.root = strings.TrimSpace(h)
	} else if IsTTH(text) {
		q.root = text
	}

	if q.root == "" {
		for _, term := range strings.Fields(text) {
			term = strings.ToLower(term)
			if strings.HasPrefix(term, "-") {
				if len(term) > 1 {
					q.exclude = append(q.exclude, term[1:])
				}
				continue
			}
			q.include = append(q.include, term)
		}
	}

	for _, ext := range opts.Extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			q.extensions = append(q.extensions, ext)
		}
	}
	return q
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}

// HasRoot reports whether the query searches by content hash
func (q *Query) HasRoot() bool {
	return q.root != ""
}

// Root returns the searched content hash
func (q *Query) Root() string {
	return q.root
}

// ItemType returns the restricted item kind
func (q *Query) ItemType() ItemType {
	return q.itemType
}

// String renders the query as search text
func (q *Query) String() string {
	if q.root != "" {
		return q.root
	}
	parts := append([]string{}, q.include...)
	for _, e := range q.exclude {
		parts = append(parts, "-"+e)
	}
	return strings.Join(parts, " ")
}

// matchesName checks the include and exclude terms against a lower-cased name
func (q *Query) matchesName(lower string) bool {
	if len(q.include) == 0 {
		return false
	}
	for _, term := range q.include {
		if !strings.Contains(lower, term) {
			return false
		}
	}
	for _, term := range q.exclude {
		if strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

// MatchesDirectory reports whether a directory name matches the terms
func (q *Query) MatchesDirectory(name string) bool {
	if q.itemType == TypeFile || q.root != "" {
		return false
	}
	return q.matchesName(strings.ToLower(name))
}

// MatchesSize applies the size bound
func (q *Query) MatchesSize(size int64) bool {
	switch q.sizeMode {
	case SizeAtLeast:
		return size >= q.size
	case SizeAtMost:
		return size <= q.size
	case SizeExact:
		return size == q.size
	default:
		return true
	}
}

// MatchesFile reports whether a file matches name, size, date and extension
func (q *Query) MatchesFile(name string, size int64, date time.Time) bool {
	if q.itemType == TypeDirectory {
		return false
	}
	if !q.MatchesSize(size) {
		return false
	}
	if !q.minDate.IsZero() && date.Before(q.minDate) {
		return false
	}
	if !q.maxDate.IsZero() && date.After(q.maxDate) {
		return false
	}

	lower := strings.ToLower(name)
	if len(q.extensions) > 0 && !q.hasExtension(lower) {
		return false
	}
	return q.matchesName(lower)
}

func (q *Query) hasExtension(lower string) bool {
	for _, ext := range q.extensions {
		if strings.HasSuffix(lower, "."+ext) {
			return true
		}
	}
	return false
}
