package models

import (
	"time"
)

// File is a file of a remote listing
type File struct {
	// Name is the file name within its directory
	Name string

	// Size in bytes
	Size int64

	// TTH is the content hash (39 character base32 tiger tree root)
	TTH string

	// Date is the last modification time, zero if unknown
	Date time.Time

	// Dupe is the classification against the local share and queue
	Dupe DupeType

	// Synthetic marks files placed by auto-download rule matching
	Synthetic bool

	parent *Directory
}

// NewFile creates a file; it is attached by Directory.AddFile
func NewFile(name string, size int64, tth string, date time.Time) *File {
	return &File{
		Name: name,
		Size: size,
		TTH:  tth,
		Date: date,
	}
}

// Parent returns the directory containing the file
func (f *File) Parent() *Directory {
	return f.parent
}

// Path returns the canonical listing path of the file ("/a/b/name")
func (f *File) Path() string {
	if f.parent == nil {
		return "/" + f.Name
	}
	return f.parent.Path() + f.Name
}

// IsQueued reports whether the file is already in the download queue
func (f *File) IsQueued() bool {
	return f.Dupe == DupeQueue || f.Dupe == DupePartialQueue
}
