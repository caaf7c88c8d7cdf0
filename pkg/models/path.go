package models

import (
	"strings"
)

// PathSeparator separates segments of listing paths
const PathSeparator = '/'

// ToAdcPath converts a "/" or "\" separated path to the canonical
// listing form: leading and trailing "/" and no empty segments.
// The root is "/".
func ToAdcPath(p string) string {
	segments := SplitPath(p)
	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/") + "/"
}

// SplitPath returns the non-empty segments of a "/" or "\" separated path
func SplitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	})
}

// LowerPath returns the lower-cased canonical form of p, used as index key
func LowerPath(p string) string {
	return strings.ToLower(ToAdcPath(p))
}

// IsSubPath reports whether sub lies strictly below parent.
// Both paths are compared case-insensitively in canonical form.
func IsSubPath(sub, parent string) bool {
	s, p := LowerPath(sub), LowerPath(parent)
	return len(s) > len(p) && strings.HasPrefix(s, p)
}

// ParentPath returns the canonical path of the directory containing p
func ParentPath(p string) string {
	segments := SplitPath(p)
	if len(segments) <= 1 {
		return "/"
	}
	return "/" + strings.Join(segments[:len(segments)-1], "/") + "/"
}

// FileDirectory returns the directory holding the file at p, keeping
// everything up to the last separator
func FileDirectory(p string) string {
	i := strings.LastIndexAny(p, "/\\")
	if i < 0 {
		return "/"
	}
	return ToAdcPath(p[:i+1])
}

// BaseName returns the last segment of p
func BaseName(p string) string {
	segments := SplitPath(p)
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}
