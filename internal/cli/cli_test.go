package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	peerCID = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567ABCDEFG"

	hashA = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA2"
	hashB = "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB2"
	hashC = "CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC2"
)

const peerList = `<?xml version="1.0" encoding="utf-8" standalone="yes"?>
<FileListing Version="1" CID="` + peerCID + `" Base="/" Generator="test">
	<Directory Name="Music">
		<Directory Name="Album">
			<File Name="b.mp3" Size="200" TTH="` + hashB + `"/>
		</Directory>
		<File Name="a.mp3" Size="100" TTH="` + hashA + `"/>
	</Directory>
	<File Name="readme.txt" Size="5" TTH="` + hashC + `"/>
</FileListing>`

const otherList = `<?xml version="1.0" encoding="utf-8" standalone="yes"?>
<FileListing Version="1" Base="/" Generator="test">
	<Directory Name="Elsewhere">
		<File Name="copy.mp3" Size="100" TTH="` + hashA + `"/>
		<File Name="notes.txt" Size="5" TTH="` + hashC + `"/>
	</Directory>
</FileListing>`

// TestHelper provides utilities for command tests
type TestHelper struct {
	t       *testing.T
	tempDir string
	config  string
}

// NewTestHelper creates a helper with a config file that keeps logs and
// progress bars out of the captured output
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()

	h := &TestHelper{t: t, tempDir: t.TempDir()}
	h.config = h.WriteFile("config.yaml", `
logging:
  enabled: false
output:
  progress: false
`)
	return h
}

// WriteFile creates a file in the temp directory and returns its path
func (h *TestHelper) WriteFile(name, content string) string {
	h.t.Helper()
	path := filepath.Join(h.tempDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		h.t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// Path returns the path of name in the temp directory
func (h *TestHelper) Path(name string) string {
	return filepath.Join(h.tempDir, name)
}

// Run executes the root command with args and returns its output
func (h *TestHelper) Run(args ...string) (string, error) {
	h.t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", h.config}, args...))

	err := cmd.Execute()
	return out.String(), err
}

// MustRun executes the root command and fails the test on error
func (h *TestHelper) MustRun(args ...string) string {
	h.t.Helper()
	out, err := h.Run(args...)
	if err != nil {
		h.t.Fatalf("%v failed: %v\noutput:\n%s", args, err, out)
	}
	return out
}

// For returns a copy of the helper reporting to t, for use in subtests
func (h *TestHelper) For(t *testing.T) *TestHelper {
	c := *h
	c.t = t
	return &c
}

func (h *TestHelper) peerList() string {
	return h.WriteFile("peer."+peerCID+".xml", peerList)
}

// ============== Load Tests ==============

func TestLoadCommand(t *testing.T) {
	h := NewTestHelper(t)

	out := h.MustRun("load", h.peerList(), "--tree")

	for _, want := range []string{
		"Loading file list...",
		"Music/ (300 B)",
		"Album/ (200 B)",
		"a.mp3 (100 B)",
		"readme.txt (5 B)",
		"User:         peer",
		"Files:        3",
		"Complete:     true",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLoadCommand_Depth(t *testing.T) {
	h := NewTestHelper(t)

	out := h.MustRun("load", h.peerList(), "--tree", "--depth", "1")
	if !strings.Contains(out, "Music/") {
		t.Errorf("depth 1 should show Music:\n%s", out)
	}
	if strings.Contains(out, "Album/") {
		t.Errorf("depth 1 should not show Album:\n%s", out)
	}
}

func TestLoadCommand_MissingFile(t *testing.T) {
	h := NewTestHelper(t)

	if _, err := h.Run("load", h.Path("missing.xml")); err == nil {
		t.Error("load of a missing file should fail")
	}
}

func TestLoadCommand_JSON(t *testing.T) {
	h := NewTestHelper(t)
	h.config = h.WriteFile("json.yaml", `
logging:
  enabled: false
output:
  format: json
`)

	out := h.MustRun("load", h.peerList())
	if !strings.Contains(out, `"type":"loading_finished"`) || !strings.Contains(out, `"type":"summary"`) {
		t.Errorf("JSON output = %s", out)
	}
}

// ============== Search Tests ==============

func TestSearchCommand(t *testing.T) {
	h := NewTestHelper(t)

	out := h.MustRun("-q", "search", h.peerList(), "mp3")
	lines := strings.Fields(out)
	if len(lines) != 2 {
		t.Fatalf("results = %q, want 2 paths", out)
	}
	for _, want := range []string{"/Music/", "/Music/Album/"} {
		if !strings.Contains(out, want+"\n") {
			t.Errorf("results missing %s: %q", want, out)
		}
	}
}

func TestSearchCommand_Filters(t *testing.T) {
	h := NewTestHelper(t)
	list := h.peerList()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"AtLeast", []string{"mp3", "--size", "150", "--size-mode", "at-least"}, "/Music/Album/\n"},
		{"Extension", []string{"readme", "--ext", ".txt"}, "/\n"},
		{"Directory", []string{"album", "--type", "directory"}, "/Music/\n"},
		{"Scoped", []string{"mp3", "--dir", "Music/Album"}, "/Music/Album/\n"},
		{"Hash", []string{"TTH:" + hashA}, "/Music/\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := h.For(t)
			out := h.MustRun(append([]string{"-q", "search", list}, tt.args...)...)
			if out != tt.want {
				t.Errorf("results = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestSearchCommand_InvalidFlags(t *testing.T) {
	h := NewTestHelper(t)
	list := h.peerList()

	tests := [][]string{
		{"search", list, "x", "--size-mode", "bigger"},
		{"search", list, "x", "--type", "folder"},
		{"search", list, " "},
	}
	for _, args := range tests {
		if _, err := h.Run(args...); err == nil {
			t.Errorf("%v should fail", args)
		}
	}
}

// ============== Diff Tests ==============

func TestDiffCommand(t *testing.T) {
	h := NewTestHelper(t)
	other := h.WriteFile("other.xml", otherList)

	out := h.MustRun("diff", h.peerList(), other)

	if !strings.Contains(out, "b.mp3") {
		t.Errorf("b.mp3 is not in the other list and should remain:\n%s", out)
	}
	for _, gone := range []string{"a.mp3", "readme.txt"} {
		if strings.Contains(out, gone) {
			t.Errorf("%s is in the other list and should be removed:\n%s", gone, out)
		}
	}
}

// ============== Share Tests ==============

func TestShareCommands(t *testing.T) {
	h := NewTestHelper(t)
	db := h.Path("share.db")
	list := h.peerList()

	out := h.MustRun("share", "import", list, "--db", db, "--real-root", "/srv/share")
	if !strings.Contains(out, "Files:        3") {
		t.Errorf("import summary = %s", out)
	}

	t.Run("Partial", func(t *testing.T) {
		h := h.For(t)
		out := h.MustRun("share", "partial", "/Music/", "--db", db)
		for _, want := range []string{`Base="/Music/"`, `Name="Album"`, `Name="a.mp3"`} {
			if !strings.Contains(out, want) {
				t.Errorf("partial list missing %s:\n%s", want, out)
			}
		}
		if strings.Contains(out, "b.mp3") {
			t.Errorf("non-recursive partial list should not include b.mp3:\n%s", out)
		}

		out = h.MustRun("share", "partial", "/Music/", "--db", db, "--recursive")
		if !strings.Contains(out, `Name="b.mp3"`) {
			t.Errorf("recursive partial list should include b.mp3:\n%s", out)
		}
	})

	t.Run("Paths", func(t *testing.T) {
		h := h.For(t)
		out := h.MustRun("share", "paths", "/Music/a.mp3", "--db", db)
		want := filepath.Join("/srv/share", "Music", "a.mp3") + "\n"
		if out != want {
			t.Errorf("paths = %q, want %q", out, want)
		}

		if _, err := h.Run("share", "paths", "/Music/zzz.mp3", "--db", db); err == nil {
			t.Error("unknown path should fail")
		}
	})

	t.Run("Search", func(t *testing.T) {
		h := h.For(t)
		out := h.MustRun("-q", "share", "search", "b.mp3", "--db", db)
		if out != "/Music/Album/\n" {
			t.Errorf("share search = %q", out)
		}
	})

	t.Run("Browse", func(t *testing.T) {
		h := h.For(t)
		out := h.MustRun("share", "browse", "/Music/", "--db", db)
		if !strings.Contains(out, "Music/") || !strings.Contains(out, "a.mp3") {
			t.Errorf("browse output:\n%s", out)
		}
		if !strings.Contains(out, "Album/ (200 B) [incomplete]") {
			t.Errorf("Album should be loaded lazily:\n%s", out)
		}
	})

	t.Run("DiffAgainstShare", func(t *testing.T) {
		h := h.For(t)
		out := h.MustRun("diff", list, "share", "--db", db)
		if strings.Contains(out, ".mp3") {
			t.Errorf("every file is shared, nothing should remain:\n%s", out)
		}
	})
}

func TestShareImport_RequiresRealRoot(t *testing.T) {
	h := NewTestHelper(t)

	if _, err := h.Run("share", "import", h.peerList(), "--db", h.Path("share.db")); err == nil {
		t.Error("import without a real root should fail")
	}
}

func TestShareCommands_RequireDatabase(t *testing.T) {
	h := NewTestHelper(t)

	if _, err := h.Run("share", "partial"); err == nil {
		t.Error("share partial without a database should fail")
	}
}

// ============== Config and Version Tests ==============

func TestConfigCommands(t *testing.T) {
	h := NewTestHelper(t)
	h.config = h.Path("nested/config.yaml")

	out := h.MustRun("config", "init")
	if !strings.Contains(out, h.config) {
		t.Errorf("init output = %q", out)
	}
	if _, err := os.Stat(h.config); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	out = h.MustRun("--metrics-addr", "127.0.0.1:0", "config", "show")
	for _, want := range []string{"Output Format: human", "Metrics Address: 127.0.0.1:0"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigFileRequired(t *testing.T) {
	h := NewTestHelper(t)
	h.config = h.Path("missing.yaml")

	if _, err := h.Run("load", h.peerList()); err == nil {
		t.Error("an explicit missing config file should fail")
	}
}

func TestVerboseAndQuietConflict(t *testing.T) {
	h := NewTestHelper(t)

	if _, err := h.Run("-v", "-q", "version"); err == nil {
		t.Error("--verbose with --quiet should fail")
	}
}

func TestVersionCommand(t *testing.T) {
	h := NewTestHelper(t)

	out := h.MustRun("version", "--short")
	if out != Version+"\n" {
		t.Errorf("version = %q, want %q", out, Version+"\n")
	}

	out = h.MustRun("version")
	if !strings.HasPrefix(out, "dirlisting "+Version) {
		t.Errorf("version = %q", out)
	}
}
