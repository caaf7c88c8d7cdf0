package listing

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/sdejongh/dirlisting/pkg/logging"
	"github.com/sdejongh/dirlisting/pkg/models"
)

var (
	// releasePattern matches scene style release directory names
	releasePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.()\-]{3,}-[A-Za-z0-9_]{2,}$`)

	nfoPattern = regexp.MustCompile(`(?i)^.+\.nfo$`)
)

// IsReleaseName reports whether name looks like a release directory
func IsReleaseName(name string) bool {
	return releasePattern.MatchString(name)
}

// downloadDirectory queues dir below target. It reports whether anything
// was queued by this listing; directories that still need loading are
// handed to the queue manager.
func (l *Listing) downloadDirectory(ctx context.Context, dir *models.Directory, target string, opts DownloadOptions) (bool, error) {
	if l.collab.Queue == nil {
		return false, errNoQueue
	}

	l.mu.RLock()
	attached := dir != nil && dir.IsAttached(l.root)
	incomplete := attached && l.IsPartial() && dir.FindIncomplete()
	l.mu.RUnlock()

	if !attached {
		return false, &models.ListingError{Kind: models.ErrNotFound, Op: "download directory"}
	}

	if incomplete {
		err := l.collab.Queue.AddDirectoryDownload(ctx, dir.Path(), l.user, target, opts.Priority, !l.clientView)
		return false, err
	}

	l.mu.RLock()
	split := !IsReleaseName(dir.Name) && len(dir.Files) == 0 && len(dir.Directories) > 0
	if split {
		for _, d := range dir.Directories {
			if !IsReleaseName(d.Name) {
				split = false
				break
			}
		}
	}
	var subdirs []*models.Directory
	if split {
		subdirs = append(subdirs, dir.Directories...)
	}
	l.mu.RUnlock()

	if !split {
		return l.createBundle(ctx, dir, target, opts.Priority)
	}

	queued := false
	var errs []error
	for _, d := range subdirs {
		ok, err := l.createBundle(ctx, d, target+dir.Name+"/", opts.Priority)
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			queued = true
		}
	}
	return queued, errors.Join(errs...)
}

// createBundle queues the content of dir as one bundle
func (l *Listing) createBundle(ctx context.Context, dir *models.Directory, target string, prio Priority) (bool, error) {
	if dir != l.root {
		target += dir.Name + "/"
	}

	l.mu.Lock()
	files := bundleFiles(dir, "", nil)
	date := dir.Date
	l.mu.Unlock()

	if len(files) == 0 || (l.settings.SkipZeroByte && allEmpty(files)) {
		l.emit(Event{Type: EventStatusMessage, Message: "Directory is empty: " + dir.Name})
		return false, nil
	}

	if err := l.collab.Queue.CreateDirectoryBundle(ctx, target, l.user, files, prio, date); err != nil {
		return false, fmt.Errorf("failed to add bundle %s: %w", target, err)
	}
	return true, nil
}

// bundleFiles lists the files below dir, subdirectories first, each level
// in display order. Sorting mutates dir, so the caller holds the write lock.
func bundleFiles(dir *models.Directory, prefix string, out []BundleFile) []BundleFile {
	dir.SortDirectories(false)
	for _, d := range dir.Directories {
		out = bundleFiles(d, prefix+d.Name+"/", out)
	}

	dir.SortFiles()
	for _, f := range dir.Files {
		out = append(out, BundleFile{Target: prefix + f.Name, TTH: f.TTH, Size: f.Size})
	}
	return out
}

func allEmpty(files []BundleFile) bool {
	for _, f := range files {
		if f.Size > 0 {
			return false
		}
	}
	return true
}

// FindNfo opens the first .nfo file below path through the queue manager.
// It reports whether one was found.
func (l *Listing) FindNfo(ctx context.Context, path string) bool {
	var nfo *models.File
	l.mu.RLock()
	if d := l.root.FindDirectory(path); d != nil {
		if found := d.FindFiles(nfoPattern); len(found) > 0 {
			nfo = found[0]
		}
	}
	l.mu.RUnlock()

	if nfo != nil {
		if l.collab.Queue != nil {
			if err := l.collab.Queue.OpenFile(ctx, l.user, nfo); err != nil {
				l.logger.Warn(ctx, "Failed to open NFO", logging.Fields{"path": nfo.Path(), "error": err.Error()})
			}
		}
		return true
	}

	if l.clientView {
		l.emit(Event{Type: EventStatusMessage, Message: "No NFO found"})
	} else {
		l.logger.Info(ctx, "No NFO found", logging.Fields{"nick": l.Nick(), "path": path})
	}
	return false
}
