package listing

import (
	"time"
)

// EventType identifies a listing notification
type EventType string

const (
	// EventLoadingStarted is emitted before the tree is replaced or merged into
	EventLoadingStarted EventType = "loading_started"
	// EventLoadingFinished is emitted after a load, merge, diff or rule match
	EventLoadingFinished EventType = "loading_finished"
	// EventLoadingFailed is emitted when a task fails; an empty message means aborted
	EventLoadingFailed EventType = "loading_failed"
	// EventSearchStarted is emitted when a search task begins
	EventSearchStarted EventType = "search_started"
	// EventSearchFailed is emitted when a search ends without results
	EventSearchFailed EventType = "search_failed"
	// EventDirectoryChanged asks the view to show a directory
	EventDirectoryChanged EventType = "directory_changed"
	// EventQueueMatched reports the result of matching the listing against the queue
	EventQueueMatched EventType = "queue_matched"
	// EventStatusMessage carries an informational message
	EventStatusMessage EventType = "status_message"
	// EventFilter asks the view to apply its filter again
	EventFilter EventType = "filter"
	// EventClosed is the last event of a listing
	EventClosed EventType = "closed"
)

// Event is a notification sent to the Observer of a listing
type Event struct {
	// Type identifies the notification
	Type EventType

	// Path is the base of a load or the target of a directory change
	Path string

	// Message is the failure reason, status text or match summary
	Message string

	// Partial is set on loading_started when only a part of the tree is loaded
	Partial bool

	// Reloading is set on loading_finished when the whole tree was replaced
	Reloading bool

	// ChangeDir is set on loading_finished when the view should move to Path
	ChangeDir bool

	// TimedOut is set on search_failed when no result arrived in time
	TimedOut bool

	// Duration is the task duration on loading_finished
	Duration time.Duration
}

// Observer receives listing notifications. Events are delivered from the
// worker goroutine, one at a time and in order.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }
