package listing

import (
	"sync"

	"github.com/sdejongh/dirlisting/pkg/models"
	"github.com/sdejongh/dirlisting/pkg/search"
)

// TaskKind identifies a queued listing operation
type TaskKind string

const (
	// TaskLoadFull replaces the tree with a complete listing
	TaskLoadFull TaskKind = "load-full"
	// TaskMergePartial merges a partial listing at a base path
	TaskMergePartial TaskKind = "merge-partial"
	// TaskDiff removes what another listing already contains
	TaskDiff TaskKind = "diff"
	// TaskMatchADL matches auto-download rules
	TaskMatchADL TaskKind = "match-adl"
	// TaskMatchQueue matches the listing against the download queue
	TaskMatchQueue TaskKind = "match-queue"
	// TaskDownloadDirectory queues a directory for download
	TaskDownloadDirectory TaskKind = "download-directory"
	// TaskSearch searches the listing
	TaskSearch TaskKind = "search"
	// TaskFilter asks the view to refilter once requests settle
	TaskFilter TaskKind = "filter"
	// TaskClose stops the worker for good
	TaskClose TaskKind = "close"

	taskChangeDirectory TaskKind = "change-directory"
	taskEndSearch       TaskKind = "end-search"
)

// DownloadOptions controls DownloadDirectory
type DownloadOptions struct {
	// Priority of the created bundles
	Priority Priority

	// SizeUnknown asks the queue to confirm the target once the size is known
	SizeUnknown bool
}

// SearchParams describes a search request
type SearchParams struct {
	search.Options

	// Directory limits the search to a listing path; empty searches everything
	Directory string
}

type fullLoad struct {
	path string
}

type partialLoad struct {
	xml  string
	base string
	done func()
}

type listDiff struct {
	source string
	own    bool
}

type dirDownload struct {
	dir    *models.Directory
	target string
	opts   DownloadOptions
}

type dirChange struct {
	path   string
	reload bool
}

type searchEnd struct {
	gen     uint64
	token   string
	outcome search.Outcome
}

type task struct {
	kind TaskKind
	data interface{}
}

// taskQueue is a FIFO of tasks. The executing task stays at the front until
// the worker pops it, so AddUnique also sees the task in progress.
type taskQueue struct {
	mu    sync.Mutex
	tasks []task
}

// Add appends t
func (q *taskQueue) Add(t task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
}

// AddUnique appends t unless a task of the same kind is queued.
// It reports whether t was added.
func (q *taskQueue) AddUnique(t task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, existing := range q.tasks {
		if existing.kind == t.kind {
			return false
		}
	}
	q.tasks = append(q.tasks, t)
	return true
}

// Front returns the first task
func (q *taskQueue) Front() (task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return task{}, false
	}
	return q.tasks[0], true
}

// PopFront removes the first task
func (q *taskQueue) PopFront() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return
	}
	q.tasks[0] = task{}
	q.tasks = q.tasks[1:]
}

// Clear removes every task and returns how many were dropped
func (q *taskQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.tasks)
	q.tasks = nil
	return n
}

// Len returns the number of queued tasks
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
