package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sdejongh/dirlisting/pkg/listing"
	"github.com/sdejongh/dirlisting/pkg/models"
)

func sampleTree() *models.Directory {
	root := models.NewRoot()
	root.SetComplete()

	music := root.AddDirectory(models.NewDirectory("Music", models.DirNormal, 0, time.Time{}))
	music.AddFile(models.NewFile("song.mp3", 2048, "HASH", time.Time{})).Dupe = models.DupeShare
	album := music.AddDirectory(models.NewDirectory("Album", models.DirNormal, 0, time.Time{}))
	album.AddFile(models.NewFile("track.flac", 1000, "HASH2", time.Time{}))

	root.AddDirectory(models.NewDirectory("Later", models.DirIncompleteNoChildren, 500, time.Time{}))
	root.AddFile(models.NewFile("readme.txt", 10, "HASH3", time.Time{}))
	return root
}

// ============== Formatter Tests ==============

func TestNew(t *testing.T) {
	tests := []struct {
		format  string
		name    string
		wantErr bool
	}{
		{"human", "human", false},
		{"", "human", false},
		{"json", "json", false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		f, err := New(tt.format, io.Discard, false)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			continue
		}
		if err == nil && f.Name() != tt.name {
			t.Errorf("New(%q).Name() = %q, want %q", tt.format, f.Name(), tt.name)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize("peer", sampleTree(), time.Second)

	want := Summary{Nick: "peer", Directories: 3, Files: 3, Size: 2048 + 1000 + 10 + 500, Complete: false, Duration: time.Second}
	if s != want {
		t.Errorf("Summarize() = %+v, want %+v", s, want)
	}
}

// ============== Human Formatter Tests ==============

func TestHumanFormatter_Events(t *testing.T) {
	tests := []struct {
		name  string
		event listing.Event
		quiet bool
		want  string
	}{
		{"Started", listing.Event{Type: listing.EventLoadingStarted}, false, "Loading file list...\n"},
		{"PartialStarted", listing.Event{Type: listing.EventLoadingStarted, Partial: true, Path: "/a/"}, false, "Loading /a/...\n"},
		{"Finished", listing.Event{Type: listing.EventLoadingFinished, Path: "/", Duration: 1500 * time.Millisecond}, false, "Loaded / in 1.5s\n"},
		{"FinishedFull", listing.Event{Type: listing.EventLoadingFinished, Duration: time.Second}, false, "Loaded file list in 1s\n"},
		{"Failed", listing.Event{Type: listing.EventLoadingFailed, Message: "boom"}, true, "Error: boom\n"},
		{"Aborted", listing.Event{Type: listing.EventLoadingFailed}, false, "Aborted\n"},
		{"TimedOut", listing.Event{Type: listing.EventSearchFailed, TimedOut: true}, true, "Search timed out\n"},
		{"Status", listing.Event{Type: listing.EventStatusMessage, Message: "No NFO found"}, false, "No NFO found\n"},
		{"QuietStatus", listing.Event{Type: listing.EventStatusMessage, Message: "x"}, true, ""},
		{"Filter", listing.Event{Type: listing.EventFilter}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewHumanFormatter(&buf, tt.quiet).OnEvent(tt.event)
			if buf.String() != tt.want {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestHumanFormatter_Tree(t *testing.T) {
	var buf bytes.Buffer
	f := NewHumanFormatter(&buf, false)

	if err := f.Tree(sampleTree(), 2); err != nil {
		t.Fatalf("Tree() error = %v", err)
	}

	want := strings.Join([]string{
		"/ (3.5 KiB)",
		"  Music/ (3.0 KiB)",
		"    Album/ (1000 B)",
		"    song.mp3 (2.0 KiB) [share]",
		"  Later/ (500 B) [incomplete]",
		"  readme.txt (10 B)",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("Tree() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestHumanFormatter_Results(t *testing.T) {
	var buf bytes.Buffer
	NewHumanFormatter(&buf, false).Results("mp3", []string{"/Music/", "/Other/"})

	want := "2 result(s) for \"mp3\"\n  1. /Music/\n  2. /Other/\n"
	if buf.String() != want {
		t.Errorf("Results() = %q, want %q", buf.String(), want)
	}

	buf.Reset()
	NewHumanFormatter(&buf, true).Results("mp3", []string{"/Music/"})
	if buf.String() != "/Music/\n" {
		t.Errorf("quiet Results() = %q", buf.String())
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1024 * 1024 * 3, "3.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

// ============== JSON Formatter Tests ==============

func decodeLines(t *testing.T, data []byte) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line is not JSON: %v\n%s", err, sc.Text())
		}
		out = append(out, m)
	}
	return out
}

func TestJSONFormatter_Stream(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(&buf)
	f.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	f.OnEvent(listing.Event{Type: listing.EventLoadingFinished, Path: "/", Duration: 2 * time.Second})
	f.Results("mp3", nil)
	f.Error(errors.New("boom"))

	lines := decodeLines(t, buf.Bytes())
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}

	if lines[0]["type"] != "loading_finished" || lines[0]["timestamp"] != "2024-01-02T03:04:05Z" {
		t.Errorf("event line = %v", lines[0])
	}
	data := lines[0]["data"].(map[string]interface{})
	if data["path"] != "/" || data["duration_ms"] != float64(2000) {
		t.Errorf("event data = %v", data)
	}

	results := lines[1]["data"].(map[string]interface{})
	if paths, ok := results["paths"].([]interface{}); !ok || len(paths) != 0 {
		t.Errorf("empty results should encode as [], got %v", results["paths"])
	}

	if lines[2]["type"] != "error" {
		t.Errorf("error line = %v", lines[2])
	}
}

func TestBuildTree(t *testing.T) {
	tree := BuildTree(sampleTree(), 0)

	if len(tree.Directories) != 2 || len(tree.Files) != 1 {
		t.Fatalf("root = %+v", tree)
	}
	music := tree.Directories[0]
	if music.Path != "/Music/" || len(music.Directories) != 1 || music.Files[0].Dupe != "share" {
		t.Errorf("Music = %+v", music)
	}
	later := tree.Directories[1]
	if later.Complete || later.Size != 500 {
		t.Errorf("Later = %+v, want incomplete of size 500", later)
	}

	shallow := BuildTree(sampleTree(), 1)
	if len(shallow.Directories[0].Directories) != 0 {
		t.Error("depth 1 should not expand subdirectories")
	}
}

// ============== Progress Tests ==============

func TestLoadProgress_DisabledOffTerminal(t *testing.T) {
	p := NewLoadProgress(&bytes.Buffer{})
	if p.Enabled() {
		t.Fatal("progress should be disabled on a buffer")
	}

	r := strings.NewReader("data")
	if got := p.Wrap(r, 4); got != io.Reader(r) {
		t.Error("disabled progress should not wrap the reader")
	}
	p.Finish()
}

func TestLoadProgress_CountsBytes(t *testing.T) {
	var out bytes.Buffer
	p := NewForcedLoadProgress(&out)

	payload := strings.Repeat("x", 4096)
	data, err := io.ReadAll(p.Wrap(strings.NewReader(payload), int64(len(payload))))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != payload {
		t.Error("wrapped reader altered the payload")
	}
	if p.Current() != int64(len(payload)) {
		t.Errorf("Current() = %d, want %d", p.Current(), len(payload))
	}

	p.Finish()
	if !strings.Contains(out.String(), "Loading") {
		t.Errorf("progress output = %q", out.String())
	}
}
