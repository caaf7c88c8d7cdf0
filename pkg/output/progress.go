package output

import (
	"io"
	"os"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"
)

// loadTemplate shows the bytes read from a listing source
const loadTemplate = `{{ string . "prefix" }}{{ counters . }} {{ bar . }} {{ percent . }} {{ speed . }}`

// LoadProgress shows a progress bar while listing payloads are read.
// Wrap has the signature of listsource.Opener.Wrap.
type LoadProgress struct {
	writer  io.Writer
	enabled bool
	width   int

	mu   sync.Mutex
	bars []*pb.ProgressBar
}

// NewLoadProgress returns a progress display on w. It is disabled when w
// is not a terminal.
func NewLoadProgress(w io.Writer) *LoadProgress {
	p := &LoadProgress{writer: w}
	if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		p.enabled = true
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			p.width = width
		}
	}
	return p
}

// NewForcedLoadProgress returns a progress display that draws on any writer
func NewForcedLoadProgress(w io.Writer) *LoadProgress {
	return &LoadProgress{writer: w, enabled: true}
}

// Enabled reports whether bars are drawn
func (p *LoadProgress) Enabled() bool {
	return p.enabled
}

// Wrap counts the bytes read from r. size is the stream length or -1.
func (p *LoadProgress) Wrap(r io.Reader, size int64) io.Reader {
	if !p.enabled {
		return r
	}
	if size < 0 {
		size = 0
	}

	bar := pb.New64(size).
		SetTemplateString(loadTemplate).
		SetWriter(p.writer).
		Set(pb.Bytes, true).
		Set("prefix", "Loading ")
	if p.width > 0 {
		bar.SetMaxWidth(p.width)
	}
	bar.Start()

	p.mu.Lock()
	p.bars = append(p.bars, bar)
	p.mu.Unlock()
	return bar.NewProxyReader(r)
}

// Current returns the bytes read through the last wrapped stream
func (p *LoadProgress) Current() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.bars) == 0 {
		return 0
	}
	return p.bars[len(p.bars)-1].Current()
}

// Finish stops every bar
func (p *LoadProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, bar := range p.bars {
		if bar.IsStarted() {
			bar.Finish()
		}
	}
	p.bars = nil
}
