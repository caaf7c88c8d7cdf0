package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sdejongh/dirlisting/pkg/listing"
	"github.com/sdejongh/dirlisting/pkg/models"
)

// Summary describes a loaded listing
type Summary struct {
	Nick        string
	Directories int
	Files       int
	Size        int64
	Complete    bool
	Duration    time.Duration
}

// Summarize counts the content of root
func Summarize(nick string, root *models.Directory, d time.Duration) Summary {
	s := Summary{Nick: nick, Complete: !root.FindIncomplete(), Duration: d}
	var walk func(*models.Directory)
	walk = func(dir *models.Directory) {
		s.Files += len(dir.Files)
		s.Size += dir.FilesSize()
		for _, c := range dir.Directories {
			s.Directories++
			if c.IsComplete() {
				walk(c)
			} else {
				s.Size += c.PartialSize
			}
		}
	}
	walk(root)
	return s
}

// Formatter renders listing notifications and command results.
// Implementations include human-readable and JSON formatters.
type Formatter interface {
	listing.Observer

	// Tree prints dir down to depth levels (0 = unlimited)
	Tree(dir *models.Directory, depth int) error

	// Results prints the result paths of a search
	Results(query string, paths []string) error

	// Summary prints the totals of a listing
	Summary(s Summary) error

	// Error reports an error
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter named format writing to w (stdout if nil).
// A quiet formatter only reports failures.
func New(format string, w io.Writer, quiet bool) (Formatter, error) {
	if w == nil {
		w = os.Stdout
	}
	switch format {
	case "human", "":
		return NewHumanFormatter(w, quiet), nil
	case "json":
		return NewJSONFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
