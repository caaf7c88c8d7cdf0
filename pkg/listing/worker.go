package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sdejongh/dirlisting/pkg/logging"
	"github.com/sdejongh/dirlisting/pkg/metrics"
	"github.com/sdejongh/dirlisting/pkg/models"
)

var (
	errNoShare   = errors.New("no share index")
	errNoQueue   = errors.New("no queue manager")
	errNoNetwork = errors.New("no network")
	errNoADL     = errors.New("no auto-download rules")
	errNoOpener  = errors.New("no listing opener")
)

// runTasks starts the worker unless it is running. The running flag is
// only cleared under runMu after the worker found the queue empty, so a
// task added concurrently is either seen by the worker or starts a new run.
func (l *Listing) runTasks() {
	l.runMu.Lock()
	defer l.runMu.Unlock()

	if l.running || l.closed {
		return
	}
	l.running = true
	done := make(chan struct{})
	l.done = done
	go l.run(done)
}

func (l *Listing) isClosed() bool {
	l.runMu.Lock()
	defer l.runMu.Unlock()
	return l.closed
}

// run drains the queue. The task being executed stays at the front until
// it finishes. Once the listing is aborted the remaining tasks are dropped
// with a single loading_failed event.
func (l *Listing) run(done chan struct{}) {
	defer close(done)

	for {
		l.runMu.Lock()
		t, ok := l.tasks.Front()
		if !ok {
			l.running = false
			l.runMu.Unlock()
			return
		}
		l.runMu.Unlock()

		if l.ctx.Err() != nil {
			l.logger.Info(l.ctx, "Listing aborted", logging.Fields{"dropped": l.tasks.Len()})
			l.emit(Event{Type: EventLoadingFailed})
			l.shutdown()
			return
		}

		stop := l.execute(t)
		l.tasks.PopFront()
		metrics.AddQueueDepth(-1)

		if stop {
			l.shutdown()
			return
		}
	}
}

// shutdown marks the listing closed and drops whatever is still queued
func (l *Listing) shutdown() {
	l.runMu.Lock()
	l.closed = true
	l.running = false
	dropped := l.tasks.Clear()
	l.runMu.Unlock()

	metrics.AddQueueDepth(-dropped)
	l.stopSearch()
}

// execute runs one task and turns its error into a loading_failed event.
// It reports whether the worker must stop.
func (l *Listing) execute(t task) bool {
	ctx := l.ctx
	start := time.Now()
	logger := l.logger.WithFields(logging.Fields{"task": string(t.kind)})
	logger.Debug(ctx, "Executing listing task", nil)

	stop, err := l.dispatch(ctx, t, start)
	result := "success"

	switch {
	case err == nil && stop:
		result = "closed"
	case err == nil:
	case errors.Is(err, models.ErrAborted) || ctx.Err() != nil:
		result = "aborted"
		stop = true
		logger.Info(ctx, "Listing task aborted", nil)
		l.emit(Event{Type: EventLoadingFailed})
	default:
		result = "error"
		logger.Error(ctx, "Listing task failed", err, nil)
		l.emit(Event{Type: EventLoadingFailed, Message: l.failureMessage(err)})
	}

	duration := time.Since(start)
	metrics.RecordTask(string(t.kind), result, duration)
	logger.Debug(ctx, "Listing task finished", logging.Fields{
		"result":   result,
		"duration": duration.String(),
	})
	return stop
}

func (l *Listing) failureMessage(err error) string {
	if errors.Is(err, models.ErrSourceUnavailable) {
		return err.Error()
	}
	return l.Nick() + ": " + err.Error()
}

func (l *Listing) dispatch(ctx context.Context, t task, start time.Time) (bool, error) {
	switch t.kind {
	case TaskLoadFull:
		return false, l.loadFull(ctx, t.data.(fullLoad), start)
	case TaskMergePartial:
		return false, l.mergePartial(ctx, t.data.(partialLoad), start)
	case TaskDiff:
		return false, l.diff(ctx, t.data.(listDiff), start)
	case TaskMatchADL:
		return false, l.matchAutoDownloadRules(ctx, start)
	case TaskMatchQueue:
		return false, l.matchQueue(ctx)
	case TaskDownloadDirectory:
		dl := t.data.(dirDownload)
		_, err := l.downloadDirectory(ctx, dl.dir, dl.target, dl.opts)
		return false, err
	case TaskSearch:
		return false, l.runSearch(ctx, t.data.(SearchParams))
	case TaskFilter:
		return false, l.refilter(ctx)
	case TaskClose:
		l.emit(Event{Type: EventClosed})
		return true, nil
	case taskChangeDirectory:
		c := t.data.(dirChange)
		return false, l.changeDirectory(ctx, c.path, c.reload)
	case taskEndSearch:
		return false, l.endSearch(ctx, t.data.(searchEnd))
	default:
		return false, fmt.Errorf("unknown task kind %q", t.kind)
	}
}

func (l *Listing) emit(e Event) {
	if l.observer != nil {
		l.observer.OnEvent(e)
	}
}

// announceLoad emits loading_started and waits for the view to acknowledge
func (l *Listing) announceLoad(ctx context.Context, partial bool) error {
	l.gate.arm()
	l.emit(Event{Type: EventLoadingStarted, Partial: partial})
	return l.gate.wait(ctx)
}

// checkDupes tells whether loaded items are classified against the share
func (l *Listing) checkDupes() bool {
	return !l.ownList && l.clientView && l.settings.DupesInFilelist && l.collab.Dupes != nil
}

// refreshDupes recomputes the duplicate classification; the root never is one
func (l *Listing) refreshDupes() {
	if !l.checkDupes() {
		return
	}
	l.root.CheckDuplicates()
	l.root.Dupe = models.DupeNone
}
