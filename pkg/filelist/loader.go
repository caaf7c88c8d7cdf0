package filelist

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sdejongh/dirlisting/pkg/models"
)

// Element and attribute names of the FileListing format
const (
	ElemFileListing = "FileListing"
	ElemDirectory   = "Directory"
	ElemFile        = "File"

	AttrBase       = "Base"
	AttrBaseDate   = "BaseDate"
	AttrGenerator  = "Generator"
	AttrVersion    = "Version"
	AttrName       = "Name"
	AttrIncomplete = "Incomplete"
	AttrChildren   = "Children"
	AttrSize       = "Size"
	AttrTTH        = "TTH"
	AttrDate       = "Date"
)

// Attributes holds the attributes of one element
type Attributes map[string]string

// DupeChecker classifies loaded items against the local share and queue
type DupeChecker interface {
	FileDupe(name string, size int64, tth string) models.DupeType
	DirDupe(path string, size int64) models.DupeType
}

// Loader applies the tag events of one FileListing document to a tree.
//
// In merge mode the document describes the directory at Base and is merged
// into what is already loaded; otherwise every element creates new nodes.
type Loader struct {
	// Root is the tree being loaded into
	Root *models.Directory

	// Index is the path index of the tree, used in merge mode
	Index *models.PathIndex

	// Base is the expected base path of a merged document
	Base string

	// Merge enables merging at Base
	Merge bool

	// Partial marks the owning listing as lazily loaded
	Partial bool

	// CheckDupes enables classification with Dupes
	CheckDupes bool

	// Dupes classifies loaded items, required when CheckDupes is set
	Dupes DupeChecker

	// AllowEmptyHash keeps files without a content hash
	AllowEmptyHash bool

	cur        *models.Directory
	paths      []string
	inListing  bool
	dirsLoaded int
}

// DirsLoaded returns the number of Directory elements processed
func (l *Loader) DirsLoaded() int {
	return l.dirsLoaded
}

// StartTag handles an opening element. simple is set for elements that
// have no content, which are closed immediately.
func (l *Loader) StartTag(ctx context.Context, name string, attrs Attributes, simple bool) error {
	if err := ctx.Err(); err != nil {
		return &models.ListingError{Kind: models.ErrAborted, Op: "parse", Err: err}
	}

	if l.cur == nil {
		l.cur = l.Root
		l.paths = l.paths[:0]
	}

	if !l.inListing {
		if name != ElemFileListing {
			return nil
		}
		if l.Merge {
			if err := l.enterBase(attrs); err != nil {
				return err
			}
		}
		l.inListing = true
		if simple {
			l.EndTag(name)
		}
		return nil
	}

	switch name {
	case ElemFile:
		l.addFile(attrs)
	case ElemDirectory:
		if err := l.enterDirectory(attrs); err != nil {
			return err
		}
		if simple {
			l.EndTag(name)
		}
	}
	return nil
}

// EndTag handles a closing element
func (l *Loader) EndTag(name string) {
	if !l.inListing {
		return
	}

	switch name {
	case ElemDirectory:
		if parent := l.cur.Parent(); parent != nil && l.cur != l.Root {
			l.cur = parent
		}
		if len(l.paths) > 0 {
			l.paths = l.paths[:len(l.paths)-1]
		}
	case ElemFileListing:
		l.cur.SetComplete()
		l.inListing = false
	}
}

func (l *Loader) currentPath() string {
	if len(l.paths) == 0 {
		return models.LowerPath(l.cur.Path())
	}
	return l.paths[len(l.paths)-1]
}

func (l *Loader) enterBase(attrs Attributes) error {
	base := models.ToAdcPath(l.Base)
	if b := attrs[AttrBase]; len(b) > 0 && b[0] == '/' && b[len(b)-1] == '/' {
		if l.Base == "" {
			base = b
		} else if !strings.EqualFold(b, base) {
			return models.Malformed("parse", "base directory %s in the file list does not match the expected base %s", b, base)
		}
	}

	cur := l.Root
	for _, name := range models.SplitPath(base) {
		next := cur.Child(name)
		if next == nil {
			next = cur.ChildFold(name)
		}
		if next == nil {
			next = models.NewDirectory(name, models.DirIncompleteWithChildren, 0, time.Time{})
			cur.AddDirectory(next)
			if l.Partial && l.CheckDupes && l.Dupes != nil {
				next.Dupe = l.Dupes.DirDupe(next.Path(), 0)
			}
			l.Index.Register(next.Path(), next, false)
		}
		cur = next
	}

	l.Index.Register(base, cur, true)
	if date, ok := parseDate(attrs[AttrBaseDate]); ok {
		cur.Date = date
	}

	l.cur = cur
	l.paths = append(l.paths[:0], models.LowerPath(base))
	return nil
}

func (l *Loader) enterDirectory(attrs Attributes) error {
	name := attrs[AttrName]
	if name == "" {
		return models.Malformed("parse", "directory missing name attribute")
	}

	incomplete := attrs[AttrIncomplete] == "1"
	children := attrs[AttrChildren] == "1"
	date, hasDate := parseDate(attrs[AttrDate])
	key := l.currentPath() + strings.ToLower(name) + "/"
	l.dirsLoaded++

	var d *models.Directory
	if l.Merge {
		if e, ok := l.Index.Lookup(key); ok && e.Dir != nil && e.Dir.Parent() == l.cur {
			d = e.Dir
		} else {
			d = l.cur.ChildFold(name)
		}
	}

	if d == nil {
		typ := models.DirNormal
		if incomplete {
			typ = models.DirIncompleteNoChildren
			if children {
				typ = models.DirIncompleteWithChildren
			}
		}
		size, _ := strconv.ParseInt(attrs[AttrSize], 10, 64)

		d = models.NewDirectory(name, typ, size, date)
		l.cur.AddDirectory(d)
		if l.Partial && l.CheckDupes && l.Dupes != nil {
			d.Dupe = l.Dupes.DirDupe(d.Path(), size)
		}
		if l.Merge && !incomplete {
			l.Index.Register(key, d, true)
		}
	} else {
		if !incomplete {
			d.SetComplete()
			l.Index.Register(key, d, true)
		}
		if hasDate {
			d.Date = date
		}
	}

	l.cur = d
	l.paths = append(l.paths, key)
	return nil
}

// addFile appends a file element; entries without a name, a size or
// (unless allowed) a hash are skipped
func (l *Loader) addFile(attrs Attributes) {
	name := attrs[AttrName]
	if name == "" {
		return
	}
	size, err := strconv.ParseInt(attrs[AttrSize], 10, 64)
	if err != nil {
		return
	}
	tth := attrs[AttrTTH]
	if tth == "" && !l.AllowEmptyHash {
		return
	}
	date, _ := parseDate(attrs[AttrDate])

	dupe := models.DupeNone
	if l.CheckDupes && l.Dupes != nil && size > 0 {
		dupe = l.Dupes.FileDupe(name, size, tth)
	}

	if l.Merge {
		if f := l.cur.FileFold(name); f != nil {
			f.Size = size
			f.TTH = tth
			f.Date = date
			f.Dupe = dupe
			return
		}
	}

	f := l.cur.AddFile(models.NewFile(name, size, tth, date))
	f.Dupe = dupe
}

// parseDate converts epoch seconds; zero and invalid values are unknown dates
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}, false
	}
	return time.Unix(secs, 0).UTC(), true
}
