package listing

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sdejongh/dirlisting/pkg/models"
	"github.com/sdejongh/dirlisting/pkg/search"
)

const (
	hash1 = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	hash2 = "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	hash3 = "CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"
)

const fullList = `<?xml version="1.0" encoding="utf-8" standalone="yes"?>
<FileListing Version="1" Base="/" Generator="test">
	<Directory Name="docs">
		<File Name="readme.txt" Size="10" TTH="` + hash1 + `"/>
		<File Name="notes.txt" Size="5" TTH="` + hash2 + `"/>
	</Directory>
	<Directory Name="music">
		<File Name="song.mp3" Size="300" TTH="` + hash3 + `"/>
	</Directory>
</FileListing>`

const rootPartial = `<?xml version="1.0" encoding="utf-8" standalone="yes"?>
<FileListing Version="1" Base="/" Generator="test">
	<Directory Name="docs" Incomplete="1" Size="15"/>
	<Directory Name="music" Incomplete="1" Size="300"/>
</FileListing>`

const docsPartial = `<?xml version="1.0" encoding="utf-8" standalone="yes"?>
<FileListing Version="1" Base="/docs/" Generator="test">
	<File Name="readme.txt" Size="10" TTH="` + hash1 + `"/>
	<File Name="notes.txt" Size="5" TTH="` + hash2 + `"/>
</FileListing>`

// recorder collects listing events
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) types() []EventType {
	var out []EventType
	for _, e := range r.all() {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) ofType(t EventType) []Event {
	var out []Event
	for _, e := range r.all() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// fakeOpener serves listings from memory
type fakeOpener struct {
	docs map[string]string
}

func (o *fakeOpener) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	doc, ok := o.docs[name]
	if !ok {
		return nil, models.Unavailable("open", name, fmt.Errorf("no such listing"))
	}
	return io.NopCloser(strings.NewReader(doc)), nil
}

type bundle struct {
	target string
	files  []BundleFile
	prio   Priority
}

type dirDownloadCall struct {
	path          string
	target        string
	recursiveList bool
}

// fakeQueue records queue manager calls
type fakeQueue struct {
	mu           sync.Mutex
	bundles      []bundle
	lists        []string
	dirDownloads []dirDownloadCall
	opened       []string
	match        MatchResult
	bundleErr    error

	// When matchRelease is set MatchListing signals matchStarted and
	// blocks until released, or until ctx ends if matchHonorsCtx is set
	matchStarted   chan struct{}
	matchRelease   chan struct{}
	matchHonorsCtx bool
}

func (q *fakeQueue) CreateDirectoryBundle(ctx context.Context, target string, user models.User, files []BundleFile, prio Priority, date time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.bundleErr != nil {
		return q.bundleErr
	}
	q.bundles = append(q.bundles, bundle{target: target, files: files, prio: prio})
	return nil
}

func (q *fakeQueue) MatchListing(ctx context.Context, user models.User, root *models.Directory) (MatchResult, error) {
	if q.matchRelease != nil {
		close(q.matchStarted)
		if q.matchHonorsCtx {
			<-ctx.Done()
			return MatchResult{}, ctx.Err()
		}
		<-q.matchRelease
	}
	return q.match, nil
}

func (q *fakeQueue) AddList(ctx context.Context, user models.User, path string, partial bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lists = append(q.lists, path)
	return nil
}

func (q *fakeQueue) AddDirectoryDownload(ctx context.Context, path string, user models.User, target string, prio Priority, recursiveList bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dirDownloads = append(q.dirDownloads, dirDownloadCall{path: path, target: target, recursiveList: recursiveList})
	return nil
}

func (q *fakeQueue) OpenFile(ctx context.Context, user models.User, f *models.File) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.opened = append(q.opened, f.Path())
	return nil
}

// fakeNetwork records direct searches
type fakeNetwork struct {
	mu     sync.Mutex
	tokens []string
}

func (n *fakeNetwork) DirectSearch(ctx context.Context, user models.User, params SearchParams, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens = append(n.tokens, token)
	return nil
}

func (n *fakeNetwork) lastToken() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.tokens) == 0 {
		return ""
	}
	return n.tokens[len(n.tokens)-1]
}

// fakeShare serves generated listings per base path
type fakeShare struct {
	docs     map[string]string
	searches int
	results  []string
}

func (s *fakeShare) GeneratePartialListing(ctx context.Context, base string, recursive bool) ([]byte, error) {
	key := base
	if recursive {
		key = "full:" + base
	}
	doc, ok := s.docs[key]
	if !ok {
		return nil, models.Unavailable("partial list", base, fmt.Errorf("not shared"))
	}
	return []byte(doc), nil
}

func (s *fakeShare) Search(ctx context.Context, q *search.Query, max int, dir string) ([]string, error) {
	s.searches++
	return s.results, nil
}

func (s *fakeShare) LocalPaths(ctx context.Context, path string) ([]string, error) {
	return []string{"/srv/share" + path}, nil
}

// fakeADL adds one synthetic directory holding every file named *.mp3
type fakeADL struct {
	calls int
}

func (a *fakeADL) MatchListing(ctx context.Context, root *models.Directory) error {
	a.calls++
	adl := models.NewDirectory("ADLSearch", models.DirNormal, 0, time.Time{})
	adl.Synthetic = true
	adl.FullPath = "/"
	root.AddDirectory(adl)

	matches := models.NewDirectory("music", models.DirNormal, 0, time.Time{})
	matches.Synthetic = true
	matches.FullPath = "/music/"
	adl.AddDirectory(matches)
	for _, d := range root.Directories {
		for _, f := range d.Files {
			if strings.HasSuffix(f.Name, ".mp3") {
				c := models.NewFile(f.Name, f.Size, f.TTH, f.Date)
				c.Synthetic = true
				matches.AddFile(c)
			}
		}
	}
	return nil
}
