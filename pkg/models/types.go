package models

// DirType describes how much of a directory's content is known
type DirType string

const (
	// DirNormal indicates the directory content is fully known
	DirNormal DirType = "normal"
	// DirIncompleteNoChildren indicates an unloaded directory without subdirectories
	DirIncompleteNoChildren DirType = "incomplete"
	// DirIncompleteWithChildren indicates an unloaded directory that has subdirectories
	DirIncompleteWithChildren DirType = "incomplete-children"
)

// DupeType classifies whether an item already exists in the local share or queue
type DupeType string

const (
	// DupeNone indicates the item is not a duplicate
	DupeNone DupeType = ""
	// DupeShare indicates the item is fully present in the local share
	DupeShare DupeType = "share"
	// DupePartialShare indicates some of the content is present in the local share
	DupePartialShare DupeType = "partial-share"
	// DupeQueue indicates the item is fully present in the download queue
	DupeQueue DupeType = "queue"
	// DupePartialQueue indicates some of the content is present in the download queue
	DupePartialQueue DupeType = "partial-queue"
	// DupeShareQueue indicates the content is spread over the share and the queue
	DupeShareQueue DupeType = "share-queue"
)

// IsShare reports whether d is one of the share classifications
func (d DupeType) IsShare() bool {
	return d == DupeShare || d == DupePartialShare
}

// IsQueue reports whether d is one of the queue classifications
func (d DupeType) IsQueue() bool {
	return d == DupeQueue || d == DupePartialQueue
}

// IsPartial reports whether d is a partial classification
func (d DupeType) IsPartial() bool {
	return d == DupePartialShare || d == DupePartialQueue
}

// Partial returns the partial form of a full classification
func (d DupeType) Partial() DupeType {
	switch d {
	case DupeShare:
		return DupePartialShare
	case DupeQueue:
		return DupePartialQueue
	default:
		return d
	}
}

// ItemKind tags an ItemRef
type ItemKind string

const (
	// ItemDirectory marks a directory reference
	ItemDirectory ItemKind = "directory"
	// ItemFile marks a file reference
	ItemFile ItemKind = "file"
)

// ItemRef refers to either a directory or a file of a listing.
// Exactly one of Dir and File is set, matching Kind.
type ItemRef struct {
	Kind ItemKind
	Dir  *Directory
	File *File
}

// DirRef returns an ItemRef for a directory
func DirRef(d *Directory) ItemRef {
	return ItemRef{Kind: ItemDirectory, Dir: d}
}

// FileRef returns an ItemRef for a file
func FileRef(f *File) ItemRef {
	return ItemRef{Kind: ItemFile, File: f}
}

// User identifies the peer owning a listing
type User struct {
	// CID is the peer's client identifier (39 characters, base32)
	CID string

	// Nick is the last known nick of the peer
	Nick string

	// HubHint is the hub URL the peer was seen on
	HubHint string

	// NMDC marks peers on legacy hubs that cannot receive direct searches
	NMDC bool

	// SupportsASCH marks peers whose search results carry listing paths
	SupportsASCH bool
}
