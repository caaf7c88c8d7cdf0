package listing

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/sdejongh/dirlisting/pkg/logging"
	"github.com/sdejongh/dirlisting/pkg/metrics"
	"github.com/sdejongh/dirlisting/pkg/models"
	"github.com/sdejongh/dirlisting/pkg/search"
)

// SearchResult is a result of a network search
type SearchResult struct {
	// Token correlates the result with the search that asked for it
	Token string

	// Path is the listing path of the matching item
	Path string

	// Directory is set when the match is a directory
	Directory bool
}

// runSearch starts a search. Searches in the tree and in the own share end
// within the task; network searches end on a later tick or completion.
func (l *Listing) runSearch(ctx context.Context, p SearchParams) error {
	l.stopSearch()

	q := search.NewQuery(p.Options)
	l.searchMu.Lock()
	l.searchGen++
	gen := l.searchGen
	l.query = q
	l.cursor = nil
	l.searchMu.Unlock()

	l.emit(Event{Type: EventSearchStarted, Message: q.String()})

	switch {
	case l.ownList && l.IsPartial():
		if l.collab.Share == nil {
			return models.Unavailable("search", p.Directory, errNoShare)
		}
		paths, err := l.collab.Share.Search(ctx, q, l.settings.ShareResultCap, p.Directory)
		if err != nil {
			return fmt.Errorf("failed to search share: %w", err)
		}
		rs := search.NewResultSet()
		for _, path := range paths {
			rs.Insert(models.ToAdcPath(path))
		}
		l.setResults(rs)
		return l.endSearch(ctx, searchEnd{gen: gen, outcome: finishedOrEmpty(rs)})

	case l.IsPartial() && !l.user.NMDC:
		if l.collab.Network == nil {
			return errNoNetwork
		}
		token := l.tokens.New()
		l.tracker.Begin(token, l.clock.Now())
		l.setResults(l.tracker.Results())

		stop := l.ticker.Subscribe(l.onTick)
		l.searchMu.Lock()
		l.stopTicker = stop
		l.searchMu.Unlock()

		l.logger.Debug(ctx, "Sending direct search", logging.Fields{
			"token": token,
			"query": q.String(),
		})
		if err := l.collab.Network.DirectSearch(ctx, l.user, p, token); err != nil {
			l.stopSearch()
			return fmt.Errorf("failed to send search: %w", err)
		}
		return nil

	default:
		rs := search.NewResultSet()
		l.mu.RLock()
		start := l.root
		if p.Directory != "" {
			start = l.root.FindDirectory(p.Directory)
		}
		if start != nil {
			search.SearchDirectory(start, q, l.settings.LocalResultCap, rs)
		}
		l.mu.RUnlock()

		l.setResults(rs)
		return l.endSearch(ctx, searchEnd{gen: gen, outcome: finishedOrEmpty(rs)})
	}
}

func finishedOrEmpty(rs *search.ResultSet) search.Outcome {
	if rs.Len() == 0 {
		return search.OutcomeEmpty
	}
	return search.OutcomeFinished
}

func (l *Listing) setResults(rs *search.ResultSet) {
	l.searchMu.Lock()
	l.results = rs
	l.searchMu.Unlock()
}

// OnSearchResult feeds a network search result. Results of other searches
// are ignored. May be called from any goroutine.
func (l *Listing) OnSearchResult(r SearchResult) {
	l.tracker.AddResult(r.Token, l.resultPath(r), l.clock.Now())
}

// resultPath returns the directory a result is shown in. Peers supporting
// ASCH already send it; otherwise a directory is shown in its parent and a
// file in the directory holding it.
func (l *Listing) resultPath(r SearchResult) string {
	switch {
	case l.user.SupportsASCH:
		return models.ToAdcPath(r.Path)
	case r.Directory:
		return models.ParentPath(r.Path)
	default:
		return models.FileDirectory(r.Path)
	}
}

// OnDirectSearchEnd feeds the number of results the peer sent for token
func (l *Listing) OnDirectSearchEnd(token string, resultCount int) {
	gen := l.currentSearch()
	if outcome := l.tracker.Complete(token, resultCount); outcome != search.OutcomePending {
		l.submit(task{kind: taskEndSearch, data: searchEnd{gen: gen, token: token, outcome: outcome}})
	}
}

func (l *Listing) onTick(now time.Time) {
	gen := l.currentSearch()
	token := l.tracker.Token()
	if outcome := l.tracker.Tick(now); outcome != search.OutcomePending {
		l.submit(task{kind: taskEndSearch, data: searchEnd{gen: gen, token: token, outcome: outcome}})
	}
}

func (l *Listing) currentSearch() uint64 {
	l.searchMu.Lock()
	defer l.searchMu.Unlock()
	return l.searchGen
}

// endSearch moves to the first result, or reports that there is none
func (l *Listing) endSearch(ctx context.Context, end searchEnd) error {
	if end.token != "" && end.token != l.tracker.Token() {
		return nil
	}

	l.searchMu.Lock()
	if end.gen != l.searchGen {
		l.searchMu.Unlock()
		return nil
	}
	stop := l.stopTicker
	l.stopTicker = nil
	rs := l.results
	l.searchMu.Unlock()
	if stop != nil {
		stop()
	}

	metrics.RecordSearch(string(end.outcome))
	l.logger.Debug(ctx, "Search finished", logging.Fields{
		"token":   end.token,
		"outcome": string(end.outcome),
		"results": rs.Len(),
	})

	if rs.Len() == 0 {
		l.emit(Event{Type: EventSearchFailed, TimedOut: end.outcome == search.OutcomeTimedOut})
		return nil
	}

	l.searchMu.Lock()
	l.cursor = search.NewCursor(rs)
	path, _ := l.cursor.First()
	l.searchMu.Unlock()

	return l.changeDirectory(ctx, path, false)
}

// stopSearch ends a running network search without an outcome
func (l *Listing) stopSearch() {
	l.searchMu.Lock()
	stop := l.stopTicker
	l.stopTicker = nil
	l.searchMu.Unlock()

	if stop != nil {
		stop()
	}
	l.tracker.Cancel()
}

// changeDirectory shows path, loading it first when a partial listing does
// not hold it yet. For remote listings the change completes when the
// requested partial list is merged.
func (l *Listing) changeDirectory(ctx context.Context, path string, reload bool) error {
	path = models.ToAdcPath(path)
	if !l.IsPartial() {
		l.emit(Event{Type: EventDirectoryChanged, Path: path})
		return nil
	}

	l.mu.RLock()
	d := l.root.FindDirectory(path)
	complete := d != nil && d.IsComplete()
	l.mu.RUnlock()

	if complete && !reload {
		l.emit(Event{Type: EventDirectoryChanged, Path: path})
		return nil
	}

	if l.ownList {
		if l.collab.Share == nil {
			return models.Unavailable("change directory", path, errNoShare)
		}
		doc, err := l.collab.Share.GeneratePartialListing(ctx, path, false)
		if err != nil {
			return err
		}

		l.mu.Lock()
		if d != nil && reload {
			d.ClearAll()
			l.index.RemoveBelow(path)
		}
		_, err = l.loadInto(ctx, l.root, l.index, bytes.NewReader(doc), true, path)
		l.mu.Unlock()
		if err != nil {
			return err
		}

		l.emit(Event{Type: EventLoadingFinished, Path: path})
		l.emit(Event{Type: EventDirectoryChanged, Path: path})
		return nil
	}

	if l.collab.Queue == nil {
		return errNoQueue
	}
	l.searchMu.Lock()
	l.pendingPath = path
	l.searchMu.Unlock()

	if err := l.collab.Queue.AddList(ctx, l.user, path, true); err != nil {
		return fmt.Errorf("failed to request %s: %w", path, err)
	}
	return nil
}
