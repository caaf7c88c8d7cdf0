package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sdejongh/dirlisting/pkg/listing"
	"github.com/sdejongh/dirlisting/pkg/models"
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	mu     sync.Mutex
	writer io.Writer
	quiet  bool
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter(w io.Writer, quiet bool) *HumanFormatter {
	return &HumanFormatter{writer: w, quiet: quiet}
}

// OnEvent prints a listing notification
func (f *HumanFormatter) OnEvent(e listing.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch e.Type {
	case listing.EventLoadingFailed:
		if e.Message == "" {
			fmt.Fprintln(f.writer, "Aborted")
		} else {
			fmt.Fprintf(f.writer, "Error: %s\n", e.Message)
		}
		return
	case listing.EventSearchFailed:
		if e.TimedOut {
			fmt.Fprintln(f.writer, "Search timed out")
		} else {
			fmt.Fprintln(f.writer, "No directories found")
		}
		return
	}
	if f.quiet {
		return
	}

	switch e.Type {
	case listing.EventLoadingStarted:
		if e.Partial {
			fmt.Fprintf(f.writer, "Loading %s...\n", e.Path)
		} else {
			fmt.Fprintln(f.writer, "Loading file list...")
		}
	case listing.EventLoadingFinished:
		what := e.Path
		if what == "" {
			what = "file list"
		}
		fmt.Fprintf(f.writer, "Loaded %s in %s\n", what, e.Duration.Round(time.Millisecond))
	case listing.EventSearchStarted:
		fmt.Fprintln(f.writer, "Searching...")
	case listing.EventDirectoryChanged:
		fmt.Fprintf(f.writer, "-> %s\n", e.Path)
	case listing.EventQueueMatched, listing.EventStatusMessage:
		fmt.Fprintln(f.writer, e.Message)
	}
}

// Tree prints dir as an indented tree
func (f *HumanFormatter) Tree(dir *models.Directory, depth int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fmt.Fprintf(f.writer, "%s (%s)\n", dir.Path(), formatBytes(dir.TotalSize(false)))
	f.printDirectory(dir, 1, depth)
	return nil
}

func (f *HumanFormatter) printDirectory(dir *models.Directory, level, depth int) {
	indent := strings.Repeat("  ", level)
	for _, c := range dir.Directories {
		fmt.Fprintf(f.writer, "%s%s/ (%s)%s\n", indent, c.Name, formatBytes(c.TotalSize(false)), marks(c.Dupe, !c.IsComplete(), c.Synthetic))
		if c.IsComplete() && (depth == 0 || level < depth) {
			f.printDirectory(c, level+1, depth)
		}
	}
	for _, file := range dir.Files {
		fmt.Fprintf(f.writer, "%s%s (%s)%s\n", indent, file.Name, formatBytes(file.Size), marks(file.Dupe, false, false))
	}
}

func marks(dupe models.DupeType, incomplete, synthetic bool) string {
	var m []string
	if incomplete {
		m = append(m, "incomplete")
	}
	if synthetic {
		m = append(m, "adl")
	}
	if dupe != models.DupeNone {
		m = append(m, string(dupe))
	}
	if len(m) == 0 {
		return ""
	}
	return " [" + strings.Join(m, ", ") + "]"
}

// Results prints the result paths of a search
func (f *HumanFormatter) Results(query string, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.quiet {
		for _, p := range paths {
			fmt.Fprintln(f.writer, p)
		}
		return nil
	}
	fmt.Fprintf(f.writer, "%d result(s) for %q\n", len(paths), query)
	for i, p := range paths {
		fmt.Fprintf(f.writer, "  %d. %s\n", i+1, p)
	}
	return nil
}

// Summary prints the totals of a listing
func (f *HumanFormatter) Summary(s Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.quiet {
		return nil
	}
	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Summary:\n")
	fmt.Fprintf(f.writer, "  User:         %s\n", s.Nick)
	fmt.Fprintf(f.writer, "  Directories:  %d\n", s.Directories)
	fmt.Fprintf(f.writer, "  Files:        %d\n", s.Files)
	fmt.Fprintf(f.writer, "  Size:         %s\n", formatBytes(s.Size))
	fmt.Fprintf(f.writer, "  Complete:     %v\n", s.Complete)
	if s.Duration > 0 {
		fmt.Fprintf(f.writer, "  Load time:    %s\n", formatDuration(s.Duration))
	}
	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(f.writer, "Error: %v\n", err)
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatDuration formats duration in human-readable format
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
