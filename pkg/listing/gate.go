package listing

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sdejongh/dirlisting/pkg/models"
)

// ackGate is a one-shot signal between the worker and the view. The worker
// arms it before announcing a load and waits until the view acknowledges
// that it stopped using the tree.
type ackGate struct {
	enabled  bool
	interval time.Duration
	waiting  atomic.Bool
}

func newAckGate(enabled bool, interval time.Duration) *ackGate {
	return &ackGate{enabled: enabled, interval: interval}
}

// arm must be called before the event the view acknowledges is emitted
func (g *ackGate) arm() {
	if g.enabled {
		g.waiting.Store(true)
	}
}

// release acknowledges the armed signal
func (g *ackGate) release() {
	g.waiting.Store(false)
}

// armed reports whether an acknowledgement is outstanding
func (g *ackGate) armed() bool {
	return g.waiting.Load()
}

// wait polls until the signal is released or ctx is cancelled
func (g *ackGate) wait(ctx context.Context) error {
	if !g.enabled {
		return nil
	}

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for g.waiting.Load() {
		select {
		case <-ctx.Done():
			g.waiting.Store(false)
			return &models.ListingError{Kind: models.ErrAborted, Op: "wait", Err: ctx.Err()}
		case <-ticker.C:
		}
	}
	return nil
}
