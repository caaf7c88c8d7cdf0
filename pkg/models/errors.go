package models

import (
	"errors"
	"fmt"
)

// Error kinds raised while loading and querying listings
var (
	// ErrMalformedListing indicates the payload is missing required data
	ErrMalformedListing = errors.New("malformed file listing")

	// ErrAborted indicates cooperative cancellation of the current task
	ErrAborted = errors.New("aborted")

	// ErrSourceUnavailable indicates a payload could not be produced or opened
	ErrSourceUnavailable = errors.New("file list not available")

	// ErrNotFound indicates a path did not resolve to a listing item
	ErrNotFound = errors.New("not found")
)

// ListingError carries context for one of the listing error kinds
type ListingError struct {
	// Kind is one of the Err* sentinels
	Kind error

	// Op names the operation that failed (e.g. "parse", "open")
	Op string

	// Path is the listing path or source name involved, if any
	Path string

	// Err is the underlying cause, if any
	Err error
}

func (e *ListingError) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As
func (e *ListingError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Malformed returns a ListingError of kind ErrMalformedListing
func Malformed(op, format string, args ...interface{}) error {
	return &ListingError{Kind: ErrMalformedListing, Op: op, Err: fmt.Errorf(format, args...)}
}

// Unavailable returns a ListingError of kind ErrSourceUnavailable
func Unavailable(op, path string, err error) error {
	return &ListingError{Kind: ErrSourceUnavailable, Op: op, Path: path, Err: err}
}

// ValidationError reports an invalid configuration value
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
