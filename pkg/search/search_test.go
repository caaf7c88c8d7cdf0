package search

import (
	"testing"
	"time"

	"github.com/sdejongh/dirlisting/internal/testutil"
	"github.com/sdejongh/dirlisting/pkg/models"
)

const (
	hashA = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	hashB = "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
)

// searchTree creates:
//
//	/Movies/Some.Movie.2020/movie.mkv (700)
//	/Movies/Some.Movie.2020/movie.nfo (1)
//	/Music/Artist/track.flac (30)
func searchTree() *models.Directory {
	root := models.NewRoot()
	root.SetComplete()
	movies := root.AddDirectory(models.NewDirectory("Movies", models.DirNormal, 0, time.Time{}))
	rel := movies.AddDirectory(models.NewDirectory("Some.Movie.2020", models.DirNormal, 0, time.Time{}))
	rel.AddFile(models.NewFile("movie.mkv", 700, hashA, time.Time{}))
	rel.AddFile(models.NewFile("movie.nfo", 1, hashB, time.Time{}))
	music := root.AddDirectory(models.NewDirectory("Music", models.DirNormal, 0, time.Time{}))
	artist := music.AddDirectory(models.NewDirectory("Artist", models.DirNormal, 0, time.Time{}))
	artist.AddFile(models.NewFile("track.flac", 30, "CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC", time.Time{}))
	return root
}

// ============== Query Tests ==============

func TestNewQuery(t *testing.T) {
	t.Run("Terms", func(t *testing.T) {
		q := NewQuery(Options{Text: "Movie -sample"})
		if q.HasRoot() {
			t.Error("text query should not have a root")
		}
		if !q.MatchesFile("Some.Movie.mkv", 1, time.Time{}) {
			t.Error("should match a name containing every term")
		}
		if q.MatchesFile("movie.sample.mkv", 1, time.Time{}) {
			t.Error("excluded term should not match")
		}
	})

	t.Run("Hash", func(t *testing.T) {
		for _, text := range []string{hashA, "TTH:" + hashA, "tth:" + hashA} {
			q := NewQuery(Options{Text: text})
			if !q.HasRoot() || q.Root() != hashA {
				t.Errorf("NewQuery(%q) root = %q, want %q", text, q.Root(), hashA)
			}
		}
	})

	t.Run("Extensions", func(t *testing.T) {
		q := NewQuery(Options{Text: "movie", Extensions: []string{".NFO"}})
		if q.MatchesFile("movie.mkv", 1, time.Time{}) {
			t.Error("should not match other extensions")
		}
		if !q.MatchesFile("movie.nfo", 1, time.Time{}) {
			t.Error("should match a listed extension")
		}
	})

	t.Run("Type", func(t *testing.T) {
		q := NewQuery(Options{Text: "movie", Type: TypeFile})
		if q.MatchesDirectory("Movies") {
			t.Error("file query should not match directories")
		}
		q = NewQuery(Options{Text: "movie", Type: TypeDirectory})
		if q.MatchesFile("movie.mkv", 1, time.Time{}) {
			t.Error("directory query should not match files")
		}
	})
}

func TestMatchesSize(t *testing.T) {
	tests := []struct {
		mode SizeMode
		size int64
		want bool
	}{
		{SizeAny, 1, true},
		{SizeAtLeast, 100, true},
		{SizeAtLeast, 99, false},
		{SizeAtMost, 100, true},
		{SizeAtMost, 101, false},
		{SizeExact, 100, true},
		{SizeExact, 101, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			q := NewQuery(Options{Text: "x", Size: 100, SizeMode: tt.mode})
			if got := q.MatchesSize(tt.size); got != tt.want {
				t.Errorf("MatchesSize(%d) = %v, want %v", tt.size, got, tt.want)
			}
		})
	}
}

// ============== Local Search Tests ==============

func TestSearchDirectory(t *testing.T) {
	root := searchTree()

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"DirectoryYieldsParent", Options{Text: "artist"}, []string{"/Music/"}},
		{"FileYieldsDirectory", Options{Text: "track"}, []string{"/Music/Artist/"}},
		{"HashYieldsDirectory", Options{Text: hashB}, []string{"/Movies/Some.Movie.2020/"}},
		{"DirectorySize", Options{Text: "some.movie", Size: 1000, SizeMode: SizeAtLeast}, nil},
		{"Both", Options{Text: "movie"}, []string{"/", "/Movies/", "/Movies/Some.Movie.2020/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := NewResultSet()
			SearchDirectory(root, NewQuery(tt.opts), 100, rs)

			got := rs.Paths()
			if len(got) != len(tt.want) {
				t.Fatalf("results = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("results[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}

	t.Run("Cap", func(t *testing.T) {
		rs := NewResultSet()
		SearchDirectory(root, NewQuery(Options{Text: "movie"}), 1, rs)
		if rs.Len() != 1 {
			t.Errorf("Len() = %d, want 1", rs.Len())
		}
	})

	t.Run("SkipsSynthetic", func(t *testing.T) {
		r := searchTree()
		adl := r.AddDirectory(models.NewDirectory("matches", models.DirNormal, 0, time.Time{}))
		adl.Synthetic = true
		adl.AddFile(models.NewFile("track.flac", 30, hashA, time.Time{}))

		rs := NewResultSet()
		SearchDirectory(r, NewQuery(Options{Text: "track"}), 100, rs)
		if rs.Contains("/matches/") {
			t.Error("synthetic directories should not be searched")
		}
	})
}

// ============== ResultSet Tests ==============

func TestCursor(t *testing.T) {
	rs := NewResultSet()
	for _, p := range []string{"/a/", "/b/", "/a/", "/c/"} {
		rs.Insert(p)
	}
	if rs.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", rs.Len())
	}

	c := NewCursor(rs)
	if p, ok := c.First(); !ok || p != "/a/" {
		t.Errorf("First() = %s, %v, want /a/, true", p, ok)
	}
	if _, ok := c.Advance(true); ok {
		t.Error("Advance(prev) at the first result should fail")
	}
	c.Advance(false)
	if p, ok := c.Advance(false); !ok || p != "/c/" {
		t.Errorf("Advance() = %s, %v, want /c/, true", p, ok)
	}
	if _, ok := c.Advance(false); ok {
		t.Error("Advance() at the last result should fail")
	}
	if p, _ := c.Current(); p != "/c/" {
		t.Errorf("Current() = %s, want /c/", p)
	}
}

// ============== Tracker Tests ==============

func TestTrackerIdleAfterResult(t *testing.T) {
	clock := testutil.FixedClock()
	tr := NewTracker(TrackerConfig{})
	tr.Begin("T", clock.Now())

	clock.Advance(200 * time.Millisecond)
	if !tr.AddResult("T", "/a/", clock.Now()) {
		t.Fatal("AddResult() rejected a result with the search token")
	}

	clock.Advance(500 * time.Millisecond)
	if got := tr.Tick(clock.Now()); got != OutcomePending {
		t.Errorf("Tick() = %s, want pending", got)
	}

	clock.Advance(500 * time.Millisecond)
	if got := tr.Tick(clock.Now()); got != OutcomeFinished {
		t.Errorf("Tick() = %s, want finished", got)
	}
	if tr.Results().Len() != 1 {
		t.Errorf("results = %d, want 1", tr.Results().Len())
	}

	if got := tr.Tick(clock.Now()); got != OutcomePending {
		t.Errorf("Tick() after finish = %s, want pending", got)
	}
}

func TestTrackerNoResults(t *testing.T) {
	clock := testutil.FixedClock()
	tr := NewTracker(TrackerConfig{})
	tr.Begin("T", clock.Now())

	for i := 0; i < 4; i++ {
		clock.Advance(time.Second)
		if got := tr.Tick(clock.Now()); got != OutcomePending {
			t.Fatalf("Tick() after %ds = %s, want pending", i+1, got)
		}
	}

	clock.Advance(time.Second)
	if got := tr.Tick(clock.Now()); got != OutcomeTimedOut {
		t.Errorf("Tick() = %s, want timed-out", got)
	}
	if tr.Active() {
		t.Error("tracker should be inactive after timing out")
	}
}

func TestTrackerCompletion(t *testing.T) {
	clock := testutil.FixedClock()

	t.Run("CountReached", func(t *testing.T) {
		tr := NewTracker(TrackerConfig{})
		tr.Begin("T", clock.Now())
		tr.AddResult("T", "/a/", clock.Now())
		tr.AddResult("T", "/a/", clock.Now())

		if got := tr.Complete("T", 1); got != OutcomeFinished {
			t.Errorf("Complete() = %s, want finished", got)
		}
	})

	t.Run("ResultsAfterCount", func(t *testing.T) {
		tr := NewTracker(TrackerConfig{})
		tr.Begin("T", clock.Now())
		if got := tr.Complete("T", 2); got != OutcomePending {
			t.Errorf("Complete() = %s, want pending", got)
		}
		tr.AddResult("T", "/a/", clock.Now())
		tr.AddResult("T", "/b/", clock.Now())

		if got := tr.Tick(clock.Now()); got != OutcomeFinished {
			t.Errorf("Tick() = %s, want finished", got)
		}
	})

	t.Run("EmptyCompletion", func(t *testing.T) {
		tr := NewTracker(TrackerConfig{})
		tr.Begin("T", clock.Now())
		if got := tr.Complete("T", 0); got != OutcomeEmpty {
			t.Errorf("Complete() = %s, want empty", got)
		}
	})

	t.Run("ForeignToken", func(t *testing.T) {
		tr := NewTracker(TrackerConfig{})
		tr.Begin("T", clock.Now())
		if tr.AddResult("other", "/a/", clock.Now()) {
			t.Error("AddResult() accepted a foreign token")
		}
		if got := tr.Complete("other", 0); got != OutcomePending {
			t.Errorf("Complete() = %s, want pending", got)
		}
	})
}

func TestIsTTH(t *testing.T) {
	if !IsTTH(hashA) {
		t.Error("IsTTH() should accept a 39 character base32 string")
	}
	for _, s := range []string{"", "abc", hashA + "A", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA1"} {
		if IsTTH(s) {
			t.Errorf("IsTTH(%q) = true, want false", s)
		}
	}
}
