package procedural

import (
	"github.com/gogpu/animexport/internal/parallel"
	"github.com/gogpu/animexport/updates"
)

// Option configures a Document.
type Option func(*Document)

// WithHold makes every drawing last n frames. Values below 1 mean 1.
func WithHold(n int) Option {
	return func(d *Document) {
		d.hold = max(n, 1)
	}
}

// WithTileSize sets the tile edge used to split renders.
func WithTileSize(n int) Option {
	return func(d *Document) {
		d.tileSize = n
	}
}

// WithWorkers sizes the document's own worker pool. Ignored with WithPool.
func WithWorkers(n int) Option {
	return func(d *Document) {
		d.workers = n
	}
}

// WithPool renders on a shared pool. The document does not close it.
func WithPool(p *parallel.WorkerPool) Option {
	return func(d *Document) {
		d.pool = p
	}
}

// WithUpdates schedules the rect of every rendered tile on c at level of
// detail 0.
func WithUpdates(c *updates.Consumer) Option {
	return func(d *Document) {
		d.updates = c
	}
}

// WithoutLabel disables the drawing number label.
func WithoutLabel() Option {
	return func(d *Document) {
		d.label = false
	}
}
