package listing

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sdejongh/dirlisting/pkg/listsource"
	"github.com/sdejongh/dirlisting/pkg/logging"
	"github.com/sdejongh/dirlisting/pkg/metrics"
	"github.com/sdejongh/dirlisting/pkg/models"
	"github.com/sdejongh/dirlisting/pkg/search"
)

// Options holds everything a Listing is built from
type Options struct {
	// User is the peer owning the listing
	User models.User

	// FileName is the listing file a full load reads
	FileName string

	// Partial marks a lazily loaded listing
	Partial bool

	// OwnList marks the local user's own share
	OwnList bool

	// ClientView marks a listing shown to the user, as opposed to one
	// loaded for automated matching
	ClientView bool

	Settings      Settings
	Collaborators Collaborators
	Observer      Observer
	Logger        logging.Logger

	// Clock, Ticker and Tokens drive network searches; defaults are real
	Clock  search.Clock
	Ticker search.Ticker
	Tokens search.TokenSource
}

// Listing is a remote file tree together with the single worker that
// mutates it. All mutation happens on the worker; query methods may be
// called from any goroutine.
type Listing struct {
	user       models.User
	fileName   string
	ownList    bool
	clientView bool
	matchADL   bool
	settings   Settings
	collab     Collaborators
	observer   Observer
	logger     logging.Logger
	clock      search.Clock
	ticker     search.Ticker
	tokens     search.TokenSource

	partial atomic.Bool

	// Tree state, written by the worker only
	mu    sync.RWMutex
	root  *models.Directory
	index *models.PathIndex

	// Worker state
	tasks        taskQueue
	runMu        sync.Mutex
	running      bool
	closed       bool
	done         chan struct{}
	ctx          context.Context
	cancel       context.CancelFunc
	typingFilter atomic.Bool
	gate         *ackGate

	// Search state. searchGen counts started searches; ends of older
	// searches are ignored.
	searchMu    sync.Mutex
	searchGen   uint64
	query       *search.Query
	results     *search.ResultSet
	cursor      *search.Cursor
	tracker     *search.Tracker
	stopTicker  func()
	pendingPath string
}

// New creates a listing with an empty, incomplete root
func New(opts Options) *Listing {
	settings := opts.Settings.withDefaults()

	logger := logging.OrNull(opts.Logger)
	clock := opts.Clock
	if clock == nil {
		clock = search.RealClock{}
	}
	ticker := opts.Ticker
	if ticker == nil {
		ticker = search.IntervalTicker{Interval: search.DefaultIdleTimeout}
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = search.UUIDTokens{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Listing{
		user:       opts.User,
		fileName:   opts.FileName,
		ownList:    opts.OwnList,
		clientView: opts.ClientView,
		matchADL:   settings.UseADL && !opts.Partial,
		settings:   settings,
		collab:     opts.Collaborators,
		observer:   opts.Observer,
		clock:      clock,
		ticker:     ticker,
		tokens:     tokens,
		root:       models.NewRoot(),
		index:      models.NewPathIndex(),
		ctx:        ctx,
		cancel:     cancel,
		gate:       newAckGate(settings.RequireAck, settings.AckPollInterval),
		results:    search.NewResultSet(),
		tracker: search.NewTracker(search.TrackerConfig{
			NoResultTimeout: settings.NoResultTimeout,
			IdleTimeout:     settings.IdleTimeout,
		}),
	}
	l.partial.Store(opts.Partial)
	l.logger = logger.WithFields(logging.Fields{"user": l.Nick()})
	return l
}

// ============== Queries ==============

// Root returns the root directory. Callers must not mutate the tree.
func (l *Listing) Root() *models.Directory {
	return l.root
}

// User returns the peer owning the listing
func (l *Listing) User() models.User {
	return l.user
}

// IsPartial reports whether the listing is lazily loaded
func (l *Listing) IsPartial() bool {
	return l.partial.Load()
}

// IsOwnList reports whether the listing describes the local share
func (l *Listing) IsOwnList() bool {
	return l.ownList
}

// Nick returns a display name for the owner of the listing
func (l *Listing) Nick() string {
	if l.ownList && l.settings.Nick != "" {
		return l.settings.Nick
	}
	if l.user.Nick != "" {
		return l.user.Nick
	}
	if !l.IsPartial() && l.fileName != "" {
		return listsource.NickFromFilename(l.fileName)
	}
	return l.user.CID
}

// FindDirectory resolves a listing path
func (l *Listing) FindDirectory(path string) (*models.Directory, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d := l.root.FindDirectory(path)
	return d, d != nil
}

// FindFile resolves the path of a file
func (l *Listing) FindFile(path string) (*models.File, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	f := l.root.FindFile(path)
	return f, f != nil
}

// TotalSize returns the size below a listing path, 0 if it does not exist
func (l *Listing) TotalSize(path string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if d := l.root.FindDirectory(path); d != nil {
		return d.TotalSize(false)
	}
	return 0
}

// LocalPaths returns the filesystem paths of an item of the own share.
// Items of synthetic directories only resolve in the own listing and
// below the top level.
func (l *Listing) LocalPaths(ctx context.Context, item models.ItemRef) ([]string, error) {
	if l.collab.Share == nil {
		return nil, &models.ListingError{Kind: models.ErrNotFound, Op: "local paths", Err: errNoShare}
	}

	l.mu.RLock()
	var dir *models.Directory
	name := ""
	switch item.Kind {
	case models.ItemDirectory:
		dir = item.Dir
	case models.ItemFile:
		dir = item.File.Parent()
		name = item.File.Name
	}
	if dir == nil {
		l.mu.RUnlock()
		return nil, &models.ListingError{Kind: models.ErrNotFound, Op: "local paths"}
	}

	var path string
	if dir.Synthetic {
		if dir.Parent() == l.root || !l.ownList {
			l.mu.RUnlock()
			return nil, nil
		}
		path = models.ToAdcPath(dir.FullPath)
	} else {
		path = dir.Path()
	}
	l.mu.RUnlock()

	if name != "" {
		path += name
	}
	return l.collab.Share.LocalPaths(ctx, path)
}

// SearchResults returns the paths found by the last search in discovery order
func (l *Listing) SearchResults() []string {
	l.searchMu.Lock()
	defer l.searchMu.Unlock()
	return l.results.Paths()
}

// IsCurrentSearchPath reports whether path is the result under the cursor
func (l *Listing) IsCurrentSearchPath(path string) bool {
	l.searchMu.Lock()
	defer l.searchMu.Unlock()
	if l.cursor == nil {
		return false
	}
	cur, ok := l.cursor.Current()
	return ok && strings.EqualFold(models.ToAdcPath(cur), models.ToAdcPath(path))
}

// ============== Task submission ==============

// LoadFullList replaces the tree with the listing at path. A load that is
// already queued is not repeated.
func (l *Listing) LoadFullList(path string) {
	l.submitUnique(task{kind: TaskLoadFull, data: fullLoad{path: path}})
}

// MergePartialList merges a partial listing document at base. For the own
// listing xml is ignored and the document is generated from the share.
// done, when set, is called on the worker after the merge.
func (l *Listing) MergePartialList(xml, base string, done func()) {
	l.submit(task{kind: TaskMergePartial, data: partialLoad{xml: xml, base: models.ToAdcPath(base), done: done}})
}

// DiffAgainstList removes from the tree every file contained in the listing
// at source. With own set and no source, the own share is used.
func (l *Listing) DiffAgainstList(source string, own bool) {
	l.submit(task{kind: TaskDiff, data: listDiff{source: source, own: own}})
}

// MatchAutoDownloadRules matches the auto-download rules again
func (l *Listing) MatchAutoDownloadRules() {
	l.submitUnique(task{kind: TaskMatchADL})
}

// MatchQueue matches the listing against the download queue
func (l *Listing) MatchQueue() {
	l.submitUnique(task{kind: TaskMatchQueue})
}

// DownloadDirectory queues dir for download into target
func (l *Listing) DownloadDirectory(dir *models.Directory, target string, opts DownloadOptions) {
	l.submit(task{kind: TaskDownloadDirectory, data: dirDownload{dir: dir, target: target, opts: opts}})
}

// Search starts a search; results replace those of the previous search
func (l *Listing) Search(params SearchParams) {
	l.submit(task{kind: TaskSearch, data: params})
}

// RefilterView asks the view to refilter once requests stop arriving
func (l *Listing) RefilterView() {
	if !l.submitUnique(task{kind: TaskFilter}) {
		l.typingFilter.Store(true)
	}
}

// Close stops the worker after the queued tasks
func (l *Listing) Close() {
	l.submit(task{kind: TaskClose})
}

// NextResult moves the search cursor and shows the directory of the new
// result. It returns false at either end of the results.
func (l *Listing) NextResult(prev bool) bool {
	l.searchMu.Lock()
	if l.cursor == nil {
		l.searchMu.Unlock()
		return false
	}
	path, ok := l.cursor.Advance(prev)
	l.searchMu.Unlock()
	if !ok {
		return false
	}

	l.submit(task{kind: taskChangeDirectory, data: dirChange{path: path}})
	return true
}

// Acknowledge tells the worker the view reacted to loading_started
func (l *Listing) Acknowledge() {
	l.gate.release()
}

// AwaitingAck reports whether the worker waits for Acknowledge
func (l *Listing) AwaitingAck() bool {
	return l.gate.armed()
}

// Abort cancels the running task and tears the listing down. Queued tasks
// are dropped and later submissions are ignored.
func (l *Listing) Abort() {
	l.cancel()
}

// Wait blocks until the worker has drained the queue
func (l *Listing) Wait() {
	for {
		l.runMu.Lock()
		done, running := l.done, l.running
		l.runMu.Unlock()

		if !running {
			return
		}
		<-done
	}
}

// accepting reports whether new tasks are taken
func (l *Listing) accepting() bool {
	return !l.isClosed() && l.ctx.Err() == nil
}

func (l *Listing) submit(t task) {
	if !l.accepting() {
		return
	}
	l.tasks.Add(t)
	metrics.AddQueueDepth(1)
	l.runTasks()
}

func (l *Listing) submitUnique(t task) bool {
	if !l.accepting() {
		return true
	}
	if !l.tasks.AddUnique(t) {
		return false
	}
	metrics.AddQueueDepth(1)
	l.runTasks()
	return true
}
