package listing

import (
	"context"
	"io"
	"time"

	"github.com/sdejongh/dirlisting/pkg/filelist"
	"github.com/sdejongh/dirlisting/pkg/models"
	"github.com/sdejongh/dirlisting/pkg/search"
)

// Priority is the download priority of a bundle
type Priority string

const (
	PriorityDefault Priority = "default"
	PriorityLow     Priority = "low"
	PriorityNormal  Priority = "normal"
	PriorityHigh    Priority = "high"
)

// ShareIndex answers queries about the local user's own share
type ShareIndex interface {
	// GeneratePartialListing returns a FileListing document describing base.
	// It fails with models.ErrSourceUnavailable if base is not shared.
	GeneratePartialListing(ctx context.Context, base string, recursive bool) ([]byte, error)

	// Search returns the listing paths matching q below dir
	Search(ctx context.Context, q *search.Query, max int, dir string) ([]string, error)

	// LocalPaths returns the filesystem paths backing a listing path
	LocalPaths(ctx context.Context, path string) ([]string, error)
}

// BundleFile is a file to download, Target being relative to the bundle
type BundleFile struct {
	Target string
	TTH    string
	Size   int64
}

// MatchResult summarizes a queue match
type MatchResult struct {
	Matches  int
	NewFiles int
	Bundles  int
}

// QueueManager turns listing content into downloads
type QueueManager interface {
	CreateDirectoryBundle(ctx context.Context, target string, user models.User, files []BundleFile, prio Priority, date time.Time) error
	MatchListing(ctx context.Context, user models.User, root *models.Directory) (MatchResult, error)
	AddList(ctx context.Context, user models.User, path string, partial bool) error
	AddDirectoryDownload(ctx context.Context, path string, user models.User, target string, prio Priority, recursiveList bool) error
	OpenFile(ctx context.Context, user models.User, f *models.File) error
}

// Network carries searches to remote peers
type Network interface {
	// DirectSearch sends a search to user; results come back through
	// Listing.OnSearchResult and Listing.OnDirectSearchEnd with token
	DirectSearch(ctx context.Context, user models.User, params SearchParams, token string) error
}

// ADLMatcher matches auto-download rules against a tree, adding synthetic
// directories with the matches
type ADLMatcher interface {
	MatchListing(ctx context.Context, root *models.Directory) error
}

// Opener opens listing files by name
type Opener interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Collaborators groups the external services a listing uses.
// Any of them may be nil; tasks needing a missing one fail.
type Collaborators struct {
	Share   ShareIndex
	Queue   QueueManager
	Network Network
	ADL     ADLMatcher
	Dupes   filelist.DupeChecker
	Opener  Opener
}
