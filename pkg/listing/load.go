package listing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sdejongh/dirlisting/pkg/filelist"
	"github.com/sdejongh/dirlisting/pkg/logging"
	"github.com/sdejongh/dirlisting/pkg/metrics"
	"github.com/sdejongh/dirlisting/pkg/models"
)

// loadInto parses a FileListing document into root. A malformed document
// stops the parse but keeps what was loaded; it is logged and reported as
// a status message rather than failing the task. Must hold l.mu when root
// is the listing tree.
func (l *Listing) loadInto(ctx context.Context, root *models.Directory, index *models.PathIndex, r io.Reader, merge bool, base string) (int, error) {
	loader := &filelist.Loader{
		Root:           root,
		Index:          index,
		Base:           base,
		Merge:          merge,
		Partial:        l.IsPartial(),
		CheckDupes:     root == l.root && l.checkDupes(),
		Dupes:          l.collab.Dupes,
		AllowEmptyHash: l.settings.LanMode,
	}

	n, err := loader.Load(ctx, r)
	metrics.RecordDirectoriesLoaded(n)
	if errors.Is(err, models.ErrMalformedListing) {
		l.logger.Error(ctx, "Error in file list loading", err, logging.Fields{
			"nick": l.Nick(),
			"path": base,
		})
		l.emit(Event{Type: EventStatusMessage, Message: fmt.Sprintf("Error in file list loading: %v. User: [ %s ]", err, l.Nick())})
		return n, nil
	}
	return n, err
}

// openListing opens the full listing of this listing's owner
func (l *Listing) openListing(ctx context.Context, name string) (io.ReadCloser, bool, error) {
	if l.ownList {
		if l.collab.Share == nil {
			return nil, false, models.Unavailable("open", "/", errNoShare)
		}
		doc, err := l.collab.Share.GeneratePartialListing(ctx, "/", true)
		if err != nil {
			return nil, false, err
		}
		return io.NopCloser(bytes.NewReader(doc)), true, nil
	}

	if l.collab.Opener == nil {
		return nil, false, models.Unavailable("open", name, errNoOpener)
	}
	rc, err := l.collab.Opener.Open(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return rc, false, nil
}

func (l *Listing) loadFull(ctx context.Context, t fullLoad, start time.Time) error {
	l.partial.Store(false)

	if err := l.announceLoad(ctx, false); err != nil {
		return err
	}

	name := t.path
	if name == "" {
		name = l.fileName
	}
	rc, merge, err := l.openListing(ctx, name)
	if err != nil {
		return err
	}
	defer rc.Close()

	l.mu.Lock()
	reloading := len(l.root.Directories) > 0
	if reloading {
		l.root.ClearAll()
		l.index.Clear()
	}
	_, err = l.loadInto(ctx, l.root, l.index, rc, merge, "/")
	if err == nil {
		l.refreshDupes()
	}
	l.mu.Unlock()
	if err != nil {
		return err
	}

	if l.matchADL && l.collab.ADL != nil {
		l.emit(Event{Type: EventStatusMessage, Message: "Matching ADL"})
		l.mu.Lock()
		err = l.collab.ADL.MatchListing(ctx, l.root)
		l.mu.Unlock()
		if err != nil {
			return fmt.Errorf("failed to match auto-download rules: %w", err)
		}
	}

	l.logger.Info(ctx, "File list loaded", logging.Fields{
		"path":     name,
		"files":    l.root.TotalFileCount(true),
		"duration": time.Since(start).String(),
	})
	l.emit(Event{
		Type:      EventLoadingFinished,
		Path:      t.path,
		Reloading: reloading,
		ChangeDir: true,
		Duration:  time.Since(start),
	})
	return nil
}

func (l *Listing) mergePartial(ctx context.Context, t partialLoad, start time.Time) error {
	if !l.IsPartial() {
		l.logger.Debug(ctx, "Ignoring partial list for a full listing", logging.Fields{"path": t.base})
		l.emit(Event{Type: EventStatusMessage, Message: "Partial list ignored: the full list is loaded"})
		return nil
	}

	l.mu.RLock()
	reloading := l.index.IsVisited(t.base)
	l.mu.RUnlock()

	if err := l.announceLoad(ctx, !reloading); err != nil {
		return err
	}

	if reloading {
		l.mu.Lock()
		if t.base == "/" {
			l.index.Clear()
			l.root.ClearAll()
			l.root.SetComplete()
		} else if cur := l.root.FindDirectory(t.base); cur != nil && len(cur.Directories)+len(cur.Files) > 0 {
			cur.ClearAll()
			l.index.RemoveBelow(t.base)
		}
		l.mu.Unlock()
	}

	var doc io.Reader = strings.NewReader(t.xml)
	if l.ownList {
		if l.collab.Share == nil {
			return models.Unavailable("partial list", t.base, errNoShare)
		}
		b, err := l.collab.Share.GeneratePartialListing(ctx, t.base, false)
		if err != nil {
			return err
		}
		doc = bytes.NewReader(b)
	}

	l.mu.Lock()
	n, err := l.loadInto(ctx, l.root, l.index, doc, true, t.base)
	if err == nil {
		l.refreshDupes()
	}
	l.mu.Unlock()
	if err != nil {
		return err
	}

	l.logger.Debug(ctx, "Partial list merged", logging.Fields{
		"path":        t.base,
		"directories": n,
		"reloading":   reloading,
	})
	l.emit(Event{
		Type:      EventLoadingFinished,
		Path:      t.base,
		Reloading: reloading && t.base == "/",
		ChangeDir: t.done == nil,
		Duration:  time.Since(start),
	})
	if t.done != nil {
		t.done()
	}

	l.searchMu.Lock()
	pending := l.pendingPath
	if pending != "" && strings.EqualFold(pending, t.base) {
		l.pendingPath = ""
	} else {
		pending = ""
	}
	l.searchMu.Unlock()
	if pending != "" {
		l.emit(Event{Type: EventDirectoryChanged, Path: pending})
	}
	return nil
}

func (l *Listing) diff(ctx context.Context, t listDiff, start time.Time) error {
	if l.ownList && l.IsPartial() {
		if l.collab.Share == nil {
			return models.Unavailable("diff", "/", errNoShare)
		}
		doc, err := l.collab.Share.GeneratePartialListing(ctx, "/", true)
		if err != nil {
			return err
		}
		l.mu.Lock()
		_, err = l.loadInto(ctx, l.root, l.index, bytes.NewReader(doc), true, "/")
		l.mu.Unlock()
		if err != nil {
			return err
		}
		l.partial.Store(false)
	}

	other := models.NewRoot()
	var (
		rc  io.ReadCloser
		err error
	)
	if t.source == "" && t.own {
		if l.collab.Share == nil {
			return models.Unavailable("diff", "/", errNoShare)
		}
		var doc []byte
		if doc, err = l.collab.Share.GeneratePartialListing(ctx, "/", true); err != nil {
			return err
		}
		rc = io.NopCloser(bytes.NewReader(doc))
	} else {
		if l.collab.Opener == nil {
			return models.Unavailable("diff", t.source, errNoOpener)
		}
		if rc, err = l.collab.Opener.Open(ctx, t.source); err != nil {
			return err
		}
	}
	defer rc.Close()

	if _, err := l.loadInto(ctx, other, models.NewPathIndex(), rc, t.source == "" && t.own, "/"); err != nil {
		return err
	}

	hashes := make(map[string]struct{})
	other.CollectHashes(hashes)

	l.mu.Lock()
	before := l.root.TotalFileCount(true)
	l.root.Filter(hashes, l.settings.SkipSubtractKiB*1024)
	l.index.Prune(l.root)
	after := l.root.TotalFileCount(true)
	l.mu.Unlock()

	l.logger.Info(ctx, "File list diff complete", logging.Fields{
		"source":  t.source,
		"removed": before - after,
	})
	l.emit(Event{Type: EventLoadingFinished, ChangeDir: true, Duration: time.Since(start)})
	return nil
}

func (l *Listing) matchAutoDownloadRules(ctx context.Context, start time.Time) error {
	if l.collab.ADL == nil {
		return errNoADL
	}

	l.mu.Lock()
	l.root.ClearSynthetic()
	err := l.collab.ADL.MatchListing(ctx, l.root)
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to match auto-download rules: %w", err)
	}

	l.emit(Event{Type: EventLoadingFinished, ChangeDir: true, Duration: time.Since(start)})
	return nil
}

func (l *Listing) matchQueue(ctx context.Context) error {
	if l.collab.Queue == nil {
		return errNoQueue
	}

	l.mu.RLock()
	res, err := l.collab.Queue.MatchListing(ctx, l.user, l.root)
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to match queue: %w", err)
	}

	l.emit(Event{Type: EventQueueMatched, Message: FormatMatchResults(res)})
	return nil
}

// FormatMatchResults renders a queue match summary
func FormatMatchResults(res MatchResult) string {
	if res.Matches == 0 {
		return "No files matched"
	}
	return fmt.Sprintf("%d file(s) matched, %d new file(s) added to %d bundle(s)", res.Matches, res.NewFiles, res.Bundles)
}

// refilter waits until refilter requests stop arriving, then emits filter
func (l *Listing) refilter(ctx context.Context) error {
	for {
		l.typingFilter.Store(false)
		select {
		case <-time.After(l.settings.FilterDebounce):
		case <-ctx.Done():
			return &models.ListingError{Kind: models.ErrAborted, Op: "filter", Err: ctx.Err()}
		}
		if !l.typingFilter.Load() {
			break
		}
	}

	l.emit(Event{Type: EventFilter})
	return nil
}
