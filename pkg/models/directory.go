package models

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// Directory is a folder of a remote listing.
//
// A directory owns its children; Parent is nil only for the root and for
// directories that were removed from the tree.
type Directory struct {
	// Name is unique among siblings, compared case-insensitively on merge
	Name string

	// Type tells whether the content is fully known
	Type DirType

	// PartialSize is the size reported by the peer while the directory is incomplete
	PartialSize int64

	// Date is the last modification time, zero if unknown
	Date time.Time

	// Dupe is the classification against the local share and queue
	Dupe DupeType

	// Loading is set while a fetch for this directory is in flight
	Loading bool

	// Synthetic marks directories injected by auto-download rule matching
	Synthetic bool

	// FullPath is the listing path a synthetic directory was derived from
	FullPath string

	// Directories are the child directories in insertion order
	Directories []*Directory

	// Files are the child files in insertion order
	Files []*File

	parent *Directory
}

// NewDirectory creates a detached directory
func NewDirectory(name string, typ DirType, partialSize int64, date time.Time) *Directory {
	return &Directory{
		Name:        name,
		Type:        typ,
		PartialSize: partialSize,
		Date:        date,
	}
}

// NewRoot creates the unnamed root of a listing
func NewRoot() *Directory {
	return NewDirectory("", DirIncompleteNoChildren, 0, time.Time{})
}

// Parent returns the owning directory
func (d *Directory) Parent() *Directory {
	return d.parent
}

// AddDirectory appends child and makes d its owner
func (d *Directory) AddDirectory(child *Directory) *Directory {
	child.parent = d
	d.Directories = append(d.Directories, child)
	return child
}

// AddFile appends f and makes d its owner
func (d *Directory) AddFile(f *File) *File {
	f.parent = d
	d.Files = append(d.Files, f)
	return f
}

// Child returns the child directory with exactly the given name
func (d *Directory) Child(name string) *Directory {
	for _, c := range d.Directories {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildFold returns the child directory whose name matches case-insensitively
func (d *Directory) ChildFold(name string) *Directory {
	for _, c := range d.Directories {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// FileFold returns the file whose name matches case-insensitively
func (d *Directory) FileFold(name string) *File {
	for _, f := range d.Files {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

// IsComplete reports whether the content of d is fully known
func (d *Directory) IsComplete() bool {
	return d.Type == DirNormal
}

// SetComplete marks the content of d as fully known. It never reverts.
func (d *Directory) SetComplete() {
	d.Type = DirNormal
}

// Path returns the canonical listing path ("/a/b/"); the root is "/"
func (d *Directory) Path() string {
	if d.parent == nil {
		return "/"
	}
	return d.parent.Path() + d.Name + "/"
}

// FindDirectory resolves a "/" or "\" separated path below d one segment
// at a time with case-sensitive matching. It returns nil if any segment
// is missing.
func (d *Directory) FindDirectory(p string) *Directory {
	cur := d
	for _, name := range SplitPath(p) {
		cur = cur.Child(name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// FindFile resolves a file path below d
func (d *Directory) FindFile(p string) *File {
	segments := SplitPath(p)
	if len(segments) == 0 {
		return nil
	}
	dir := d
	for _, name := range segments[:len(segments)-1] {
		if dir = dir.Child(name); dir == nil {
			return nil
		}
	}
	name := segments[len(segments)-1]
	for _, f := range dir.Files {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// IsAttached reports whether d is still reachable from root
func (d *Directory) IsAttached(root *Directory) bool {
	cur := d
	for cur.parent != nil {
		if !cur.parent.owns(cur) {
			return false
		}
		cur = cur.parent
	}
	return cur == root
}

func (d *Directory) owns(child *Directory) bool {
	for _, c := range d.Directories {
		if c == child {
			return true
		}
	}
	return false
}

// SortDirectories orders child directories, synthetic ones first
func (d *Directory) SortDirectories(recursive bool) {
	if recursive {
		for _, c := range d.Directories {
			c.SortDirectories(true)
		}
	}
	sort.SliceStable(d.Directories, func(i, j int) bool {
		a, b := d.Directories[i], d.Directories[j]
		if a.Synthetic != b.Synthetic {
			return a.Synthetic
		}
		return CompareNames(a.Name, b.Name) < 0
	})
}

// SortFiles orders the files of d by name
func (d *Directory) SortFiles() {
	sort.SliceStable(d.Files, func(i, j int) bool {
		return CompareNames(d.Files[i].Name, d.Files[j].Name) < 0
	})
}

// FilesSize is the size of the files directly inside d
func (d *Directory) FilesSize() int64 {
	var total int64
	for _, f := range d.Files {
		total += f.Size
	}
	return total
}

// FileCount is the number of files directly inside d
func (d *Directory) FileCount() int {
	return len(d.Files)
}

// TotalSize aggregates file sizes recursively. Incomplete directories
// contribute their PartialSize hint; synthetic directories are skipped
// unless includeSynthetic is set. Below a synthetic directory everything
// is counted.
func (d *Directory) TotalSize(includeSynthetic bool) int64 {
	if !d.IsComplete() {
		return d.PartialSize
	}
	if !includeSynthetic && d.Synthetic {
		return 0
	}

	total := d.FilesSize()
	for _, c := range d.Directories {
		if !includeSynthetic && c.Synthetic {
			continue
		}
		total += c.TotalSize(includeSynthetic || d.Synthetic)
	}
	return total
}

// TotalFileCount counts files recursively with the same synthetic rule as TotalSize
func (d *Directory) TotalFileCount(includeSynthetic bool) int {
	if !includeSynthetic && d.Synthetic {
		return 0
	}

	total := d.FileCount()
	for _, c := range d.Directories {
		if !includeSynthetic && c.Synthetic {
			continue
		}
		total += c.TotalFileCount(includeSynthetic || d.Synthetic)
	}
	return total
}

// FindIncomplete reports whether d or any directory below it is incomplete
func (d *Directory) FindIncomplete() bool {
	if !d.IsComplete() {
		return true
	}
	for _, c := range d.Directories {
		if c.FindIncomplete() {
			return true
		}
	}
	return false
}

// ClearAll detaches every child directory and file
func (d *Directory) ClearAll() {
	for _, c := range d.Directories {
		c.parent = nil
	}
	for _, f := range d.Files {
		f.parent = nil
	}
	d.Directories = nil
	d.Files = nil
}

// ClearSynthetic removes synthetic directories anywhere below d
func (d *Directory) ClearSynthetic() {
	kept := d.Directories[:0]
	for _, c := range d.Directories {
		if c.Synthetic {
			c.parent = nil
			continue
		}
		c.ClearSynthetic()
		kept = append(kept, c)
	}
	clearTail(d.Directories, len(kept))
	d.Directories = kept
}

// FindFiles collects files below d whose name matches re
func (d *Directory) FindFiles(re *regexp.Regexp) []*File {
	var out []*File
	d.findFiles(re, &out)
	return out
}

func (d *Directory) findFiles(re *regexp.Regexp, out *[]*File) {
	for _, f := range d.Files {
		if re.MatchString(f.Name) {
			*out = append(*out, f)
		}
	}
	for _, c := range d.Directories {
		c.findFiles(re, out)
	}
}

// CollectHashes adds the content hash of every file below d to set
func (d *Directory) CollectHashes(set map[string]struct{}) {
	for _, c := range d.Directories {
		c.CollectHashes(set)
	}
	for _, f := range d.Files {
		set[f.TTH] = struct{}{}
	}
}

// Filter removes, in post-order, every file whose hash is in set and every
// directory left without files and subdirectories. When minSize is positive
// and fewer than two files remain in a directory, files smaller than
// minSize are removed as well.
func (d *Directory) Filter(set map[string]struct{}, minSize int64) {
	for _, c := range d.Directories {
		c.Filter(set, minSize)
	}

	keptDirs := d.Directories[:0]
	for _, c := range d.Directories {
		if len(c.Files)+len(c.Directories) == 0 {
			c.parent = nil
			continue
		}
		keptDirs = append(keptDirs, c)
	}
	clearTail(d.Directories, len(keptDirs))
	d.Directories = keptDirs

	d.removeFiles(func(f *File) bool {
		_, ok := set[f.TTH]
		return ok
	})

	if minSize > 0 && len(d.Files) < 2 {
		d.removeFiles(func(f *File) bool {
			return f.Size < minSize
		})
	}
}

func (d *Directory) removeFiles(drop func(*File) bool) {
	kept := d.Files[:0]
	for _, f := range d.Files {
		if drop(f) {
			f.parent = nil
			continue
		}
		kept = append(kept, f)
	}
	for i := len(kept); i < len(d.Files); i++ {
		d.Files[i] = nil
	}
	d.Files = kept
}

func clearTail(dirs []*Directory, from int) {
	for i := from; i < len(dirs); i++ {
		dirs[i] = nil
	}
}
