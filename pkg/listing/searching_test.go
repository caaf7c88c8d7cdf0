package listing

import (
	"reflect"
	"testing"
	"time"

	"github.com/sdejongh/dirlisting/internal/testutil"
	"github.com/sdejongh/dirlisting/pkg/models"
	"github.com/sdejongh/dirlisting/pkg/search"
)

type networkFixture struct {
	*fixture
	clock   *testutil.StubClock
	ticker  *testutil.ManualTicker
	network *fakeNetwork
}

func newNetworkFixture(t *testing.T, user models.User) *networkFixture {
	t.Helper()
	nf := &networkFixture{
		clock:   testutil.FixedClock(),
		ticker:  testutil.NewManualTicker(),
		network: &fakeNetwork{},
	}
	nf.fixture = newFixture(t, Options{
		User:          user,
		Partial:       true,
		Collaborators: Collaborators{Network: nf.network},
		Clock:         nf.clock,
		Ticker:        nf.ticker,
		Tokens:        testutil.NewStubTokens(),
	})

	nf.l.MergePartialList(rootPartial, "/", nil)
	nf.l.Wait()
	nf.events.reset()
	return nf
}

// tick advances the clock and fires the timer, then waits for any task it queued
func (nf *networkFixture) tick(d time.Duration) {
	nf.clock.Advance(d)
	nf.ticker.Fire(nf.clock.Now())
	nf.l.Wait()
}

// ============== Local Search Tests ==============

func TestLocalSearch(t *testing.T) {
	tests := []struct {
		name   string
		params SearchParams
		want   []string
	}{
		{
			name:   "FileMatchGivesItsDirectory",
			params: SearchParams{Options: search.Options{Text: "readme"}},
			want:   []string{"/docs/"},
		},
		{
			name:   "DirectoryMatchGivesItsParent",
			params: SearchParams{Options: search.Options{Text: "music"}},
			want:   []string{"/"},
		},
		{
			name:   "HashMatch",
			params: SearchParams{Options: search.Options{Text: "TTH:" + hash3}},
			want:   []string{"/music/"},
		},
		{
			name:   "ScopedToDirectory",
			params: SearchParams{Options: search.Options{Text: "txt"}, Directory: "/music/"},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			f.loadFull(t)

			f.l.Search(tt.params)
			f.l.Wait()

			if got := f.l.SearchResults(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SearchResults() = %v, want %v", got, tt.want)
			}

			if len(tt.want) == 0 {
				failed := f.events.ofType(EventSearchFailed)
				if len(failed) != 1 || failed[0].TimedOut {
					t.Errorf("search_failed = %+v, want one without timeout", failed)
				}
				return
			}
			changed := f.events.ofType(EventDirectoryChanged)
			if len(changed) != 1 || changed[0].Path != tt.want[0] {
				t.Errorf("directory_changed = %+v, want %s", changed, tt.want[0])
			}
			if !f.l.IsCurrentSearchPath(tt.want[0]) {
				t.Errorf("IsCurrentSearchPath(%s) = false", tt.want[0])
			}
		})
	}
}

func TestNextResult(t *testing.T) {
	f := newFixture(t, Options{})
	f.loadFull(t)

	f.l.Search(SearchParams{Options: search.Options{Text: "s"}})
	f.l.Wait()

	results := f.l.SearchResults()
	if want := []string{"/", "/docs/", "/music/"}; !reflect.DeepEqual(results, want) {
		t.Fatalf("SearchResults() = %v, want %v", results, want)
	}

	if f.l.NextResult(true) {
		t.Error("NextResult(prev) at the first result should report no more")
	}
	if !f.l.NextResult(false) {
		t.Fatal("NextResult() should move to the second result")
	}
	f.l.Wait()
	if !f.l.IsCurrentSearchPath(results[1]) {
		t.Errorf("cursor should be at %s", results[1])
	}
	f.l.NextResult(false)
	f.l.Wait()
	if f.l.NextResult(false) {
		t.Error("NextResult() at the last result should report no more")
	}

	changed := f.events.ofType(EventDirectoryChanged)
	if len(changed) != 3 || changed[1].Path != results[1] {
		t.Errorf("directory_changed = %+v", changed)
	}
}

func TestOwnShareSearch(t *testing.T) {
	share := &fakeShare{
		docs:    map[string]string{"/": rootPartial, "/music/": `<FileListing Base="/music/"><File Name="song.mp3" Size="300" TTH="` + hash3 + `"/></FileListing>`},
		results: []string{"/music/"},
	}
	f := newFixture(t, Options{Partial: true, OwnList: true, Collaborators: Collaborators{Share: share}})
	f.l.MergePartialList("", "/", nil)
	f.l.Wait()
	f.events.reset()

	f.l.Search(SearchParams{Options: search.Options{Text: "song"}})
	f.l.Wait()

	if share.searches != 1 {
		t.Errorf("share searches = %d, want 1", share.searches)
	}
	if _, ok := f.l.FindFile("/music/song.mp3"); !ok {
		t.Error("directory of the result should be loaded from the share")
	}
	want := []EventType{EventSearchStarted, EventLoadingFinished, EventDirectoryChanged}
	if got := f.events.types(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

// ============== Network Search Tests ==============

func TestNetworkSearchFinishesAfterIdle(t *testing.T) {
	nf := newNetworkFixture(t, models.User{CID: "CID", Nick: "peer"})

	nf.l.Search(SearchParams{Options: search.Options{Text: "readme"}})
	nf.l.Wait()

	token := nf.network.lastToken()
	if token != "token-1" {
		t.Fatalf("search token = %q, want token-1", token)
	}
	if nf.ticker.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d, want 1", nf.ticker.Subscribers())
	}

	nf.l.OnSearchResult(SearchResult{Token: token, Path: "/docs/readme.txt"})
	nf.l.OnSearchResult(SearchResult{Token: "other", Path: "/music/song.mp3"})
	nf.tick(500 * time.Millisecond)
	if nf.ticker.Subscribers() != 1 {
		t.Fatal("search should still be collecting results")
	}

	nf.tick(time.Second)

	if nf.ticker.Subscribers() != 0 {
		t.Error("finished search should unsubscribe from the timer")
	}
	if got := nf.l.SearchResults(); !reflect.DeepEqual(got, []string{"/docs/"}) {
		t.Errorf("SearchResults() = %v, want [/docs/]", got)
	}
	if !nf.l.IsCurrentSearchPath("/docs/") {
		t.Error("cursor should point at the only result")
	}
	if !reflect.DeepEqual(nf.queue.lists, []string{"/docs/"}) {
		t.Errorf("requested lists = %v, want [/docs/]", nf.queue.lists)
	}

	// navigation completes once the requested directory arrives
	nf.l.MergePartialList(docsPartial, "/docs/", nil)
	nf.l.Wait()
	changed := nf.events.ofType(EventDirectoryChanged)
	if len(changed) != 1 || changed[0].Path != "/docs/" {
		t.Errorf("directory_changed = %+v, want /docs/", changed)
	}
}

func TestNetworkSearchTimesOut(t *testing.T) {
	nf := newNetworkFixture(t, models.User{CID: "CID", Nick: "peer"})

	nf.l.Search(SearchParams{Options: search.Options{Text: "nothing"}})
	nf.l.Wait()

	nf.tick(4 * time.Second)
	if len(nf.events.ofType(EventSearchFailed)) != 0 {
		t.Fatal("search ended before the timeout")
	}

	nf.tick(time.Second)

	failed := nf.events.ofType(EventSearchFailed)
	if len(failed) != 1 || !failed[0].TimedOut {
		t.Fatalf("search_failed = %+v, want one timed out", failed)
	}
	if n := len(nf.l.SearchResults()); n != 0 {
		t.Errorf("got %d results, want 0", n)
	}
	if nf.ticker.Subscribers() != 0 {
		t.Error("timed out search should unsubscribe from the timer")
	}
}

func TestNetworkSearchCompletion(t *testing.T) {
	nf := newNetworkFixture(t, models.User{CID: "CID", Nick: "peer", SupportsASCH: true})

	nf.l.Search(SearchParams{Options: search.Options{Text: "song"}})
	nf.l.Wait()
	token := nf.network.lastToken()

	nf.l.OnSearchResult(SearchResult{Token: token, Path: "/music/", Directory: true})
	nf.l.OnDirectSearchEnd(token, 1)
	nf.l.Wait()

	if got := nf.l.SearchResults(); !reflect.DeepEqual(got, []string{"/music/"}) {
		t.Errorf("SearchResults() = %v, want [/music/]", got)
	}
	if nf.ticker.Subscribers() != 0 {
		t.Error("completed search should unsubscribe from the timer")
	}

	// late events of a finished search are ignored
	nf.l.OnDirectSearchEnd(token, 1)
	nf.tick(10 * time.Second)
	if n := len(nf.l.SearchResults()); n != 1 {
		t.Errorf("got %d results, want 1", n)
	}
}

func TestNetworkSearchCompletionBeforeResults(t *testing.T) {
	nf := newNetworkFixture(t, models.User{CID: "CID", Nick: "peer"})

	nf.l.Search(SearchParams{Options: search.Options{Text: "txt"}})
	nf.l.Wait()
	token := nf.network.lastToken()

	nf.l.OnDirectSearchEnd(token, 2)
	nf.l.OnSearchResult(SearchResult{Token: token, Path: "/docs/readme.txt"})
	nf.l.OnSearchResult(SearchResult{Token: token, Path: "/music/song.txt"})
	nf.tick(0)

	if got := nf.l.SearchResults(); !reflect.DeepEqual(got, []string{"/docs/", "/music/"}) {
		t.Errorf("SearchResults() = %v", got)
	}
	if nf.ticker.Subscribers() != 0 {
		t.Error("search should end on the first tick once every result arrived")
	}
}

func TestSearchResultPath(t *testing.T) {
	tests := []struct {
		name string
		asch bool
		r    SearchResult
		want string
	}{
		{"File", false, SearchResult{Path: "/docs/readme.txt"}, "/docs/"},
		{"Directory", false, SearchResult{Path: "/music/", Directory: true}, "/"},
		{"NestedDirectory", false, SearchResult{Path: "/music/album", Directory: true}, "/music/"},
		{"DirectoryPathAsFile", false, SearchResult{Path: "/music/"}, "/music/"},
		{"ASCH", true, SearchResult{Path: "/music/album", Directory: true}, "/music/album/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(Options{User: models.User{CID: "CID", SupportsASCH: tt.asch}})
			if got := l.resultPath(tt.r); got != tt.want {
				t.Errorf("resultPath(%+v) = %q, want %q", tt.r, got, tt.want)
			}
		})
	}
}

func TestStaleSearchEndIgnored(t *testing.T) {
	f := newFixture(t, Options{})
	f.loadFull(t)

	f.l.Search(SearchParams{Options: search.Options{Text: "readme"}})
	f.l.Wait()
	stale := f.l.currentSearch()

	f.l.Search(SearchParams{Options: search.Options{Text: "song"}})
	f.l.Wait()
	f.events.reset()

	f.l.submit(task{kind: taskEndSearch, data: searchEnd{gen: stale, outcome: search.OutcomeFinished}})
	f.l.Wait()

	if got := f.events.types(); len(got) != 0 {
		t.Errorf("events = %v, want none for the end of an older search", got)
	}
	if got := f.l.SearchResults(); !reflect.DeepEqual(got, []string{"/music/"}) {
		t.Errorf("SearchResults() = %v, want [/music/]", got)
	}
}

func TestNMDCSearchIsLocal(t *testing.T) {
	nf := newNetworkFixture(t, models.User{CID: "CID", Nick: "peer", NMDC: true})

	nf.l.Search(SearchParams{Options: search.Options{Text: "music"}})
	nf.l.Wait()

	if nf.network.lastToken() != "" {
		t.Error("NMDC users are searched in the loaded tree")
	}
	if got := nf.l.SearchResults(); !reflect.DeepEqual(got, []string{"/"}) {
		t.Errorf("SearchResults() = %v, want [/]", got)
	}
}

func TestCloseStopsNetworkSearch(t *testing.T) {
	nf := newNetworkFixture(t, models.User{CID: "CID", Nick: "peer"})

	nf.l.Search(SearchParams{Options: search.Options{Text: "readme"}})
	nf.l.Wait()
	nf.l.Close()
	nf.l.Wait()

	if nf.ticker.Subscribers() != 0 {
		t.Error("closing the listing should stop the search timer")
	}
}
