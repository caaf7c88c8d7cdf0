package output

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/sdejongh/dirlisting/pkg/listing"
	"github.com/sdejongh/dirlisting/pkg/models"
)

// JSONFormatter writes one JSON object per line for automation and scripting
type JSONFormatter struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
}

// JSONEvent represents a single event in the JSON output stream
type JSONEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
}

// JSONListingData carries the fields of a listing notification
type JSONListingData struct {
	Path       string `json:"path,omitempty"`
	Message    string `json:"message,omitempty"`
	Partial    bool   `json:"partial,omitempty"`
	Reloading  bool   `json:"reloading,omitempty"`
	ChangeDir  bool   `json:"change_dir,omitempty"`
	TimedOut   bool   `json:"timed_out,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// JSONResultsData represents the results of a search
type JSONResultsData struct {
	Query string   `json:"query"`
	Paths []string `json:"paths"`
}

// JSONSummaryData represents the totals of a listing
type JSONSummaryData struct {
	Nick        string `json:"nick"`
	Directories int    `json:"directories"`
	Files       int    `json:"files"`
	Size        int64  `json:"size"`
	Complete    bool   `json:"complete"`
	DurationMs  int64  `json:"duration_ms"`
}

// JSONDirectory is a directory of a tree
type JSONDirectory struct {
	Name        string          `json:"name"`
	Path        string          `json:"path"`
	Size        int64           `json:"size"`
	Complete    bool            `json:"complete"`
	Synthetic   bool            `json:"synthetic,omitempty"`
	Dupe        string          `json:"dupe,omitempty"`
	Date        *time.Time      `json:"date,omitempty"`
	Directories []JSONDirectory `json:"directories,omitempty"`
	Files       []JSONFile      `json:"files,omitempty"`
}

// JSONFile is a file of a tree
type JSONFile struct {
	Name string     `json:"name"`
	Size int64      `json:"size"`
	TTH  string     `json:"tth,omitempty"`
	Dupe string     `json:"dupe,omitempty"`
	Date *time.Time `json:"date,omitempty"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{enc: json.NewEncoder(w), now: time.Now}
}

func (f *JSONFormatter) emit(typ string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enc.Encode(JSONEvent{Timestamp: f.now().UTC(), Type: typ, Data: data})
}

// OnEvent writes a listing notification
func (f *JSONFormatter) OnEvent(e listing.Event) {
	f.emit(string(e.Type), JSONListingData{
		Path:       e.Path,
		Message:    e.Message,
		Partial:    e.Partial,
		Reloading:  e.Reloading,
		ChangeDir:  e.ChangeDir,
		TimedOut:   e.TimedOut,
		DurationMs: e.Duration.Milliseconds(),
	})
}

// Tree writes dir as a nested document
func (f *JSONFormatter) Tree(dir *models.Directory, depth int) error {
	return f.emit("tree", BuildTree(dir, depth))
}

// BuildTree converts dir down to depth levels (0 = unlimited)
func BuildTree(dir *models.Directory, depth int) JSONDirectory {
	return buildTree(dir, 1, depth)
}

func buildTree(dir *models.Directory, level, depth int) JSONDirectory {
	out := JSONDirectory{
		Name:      dir.Name,
		Path:      dir.Path(),
		Size:      dir.TotalSize(false),
		Complete:  dir.IsComplete(),
		Synthetic: dir.Synthetic,
		Dupe:      string(dir.Dupe),
		Date:      optionalTime(dir.Date),
	}
	if !dir.IsComplete() || (depth > 0 && level > depth) {
		return out
	}
	for _, c := range dir.Directories {
		out.Directories = append(out.Directories, buildTree(c, level+1, depth))
	}
	for _, file := range dir.Files {
		out.Files = append(out.Files, JSONFile{
			Name: file.Name,
			Size: file.Size,
			TTH:  file.TTH,
			Dupe: string(file.Dupe),
			Date: optionalTime(file.Date),
		})
	}
	return out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Results writes the results of a search
func (f *JSONFormatter) Results(query string, paths []string) error {
	if paths == nil {
		paths = []string{}
	}
	return f.emit("results", JSONResultsData{Query: query, Paths: paths})
}

// Summary writes the totals of a listing
func (f *JSONFormatter) Summary(s Summary) error {
	return f.emit("summary", JSONSummaryData{
		Nick:        s.Nick,
		Directories: s.Directories,
		Files:       s.Files,
		Size:        s.Size,
		Complete:    s.Complete,
		DurationMs:  s.Duration.Milliseconds(),
	})
}

// Error writes an error
func (f *JSONFormatter) Error(err error) error {
	return f.emit("error", map[string]string{"error": err.Error()})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}
