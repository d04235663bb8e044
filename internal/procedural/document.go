package procedural

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"golang.org/x/image/font"

	"github.com/gogpu/animexport"
	"github.com/gogpu/animexport/internal/parallel"
	"github.com/gogpu/animexport/regen"
	"github.com/gogpu/animexport/updates"
)

var (
	// ErrInvalidBounds is returned for empty canvas bounds.
	ErrInvalidBounds = errors.New("procedural: empty bounds")

	// ErrInvalidLength is returned for animations without frames.
	ErrInvalidLength = errors.New("procedural: animation has no frames")
)

// Document is an animation of length frames. Requested frames are drawn
// tile by tile on a worker pool; the finished frame replaces the
// projection and FrameReady is raised on the rendering goroutine.
//
// A newer request supersedes an older one, whose subscribers receive
// FrameCancelled. Frames outside [0, length) are cancelled right away.
type Document struct {
	bounds   image.Rectangle
	length   int
	hold     int
	tileSize int
	workers  int
	label    bool
	updates  *updates.Consumer

	pool     *parallel.WorkerPool
	ownsPool bool
	renders  sync.WaitGroup

	faceMu sync.Mutex
	face   font.Face

	mu         sync.Mutex
	projection *image.NRGBA
	subs       map[*subscription]regen.FrameEvents
	gen        uint64
	cancel     context.CancelFunc
	closed     bool

	// beforePublish runs after a frame is drawn, before it is published.
	beforePublish func(frame int)
}

// NewDocument creates a document of length frames covering bounds.
func NewDocument(bounds image.Rectangle, length int, opts ...Option) (*Document, error) {
	if bounds.Empty() {
		return nil, ErrInvalidBounds
	}
	if length <= 0 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidLength, length)
	}

	d := &Document{
		bounds:   bounds,
		length:   length,
		hold:     1,
		tileSize: parallel.TileSize,
		label:    true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d.init()
}

func (d *Document) init() (*Document, error) {
	if d.label {
		face, err := newLabelFace()
		if err != nil {
			return nil, err
		}
		d.face = face
	}
	if d.pool == nil {
		d.pool = parallel.NewWorkerPool(d.workers)
		d.ownsPool = true
	}

	d.projection = image.NewNRGBA(d.bounds)
	d.subs = make(map[*subscription]regen.FrameEvents)
	return d, nil
}

// Clone returns an independent document with the same animation. The
// clone shares the worker pool of d and must be closed before d.
func (d *Document) Clone() (*Document, error) {
	c := &Document{
		bounds:   d.bounds,
		length:   d.length,
		hold:     d.hold,
		tileSize: d.tileSize,
		label:    d.label,
		updates:  d.updates,
		pool:     d.pool,
	}
	return c.init()
}

// Close cancels the render in progress and stops an owned pool.
func (d *Document) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()

	d.renders.Wait()
	if d.ownsPool {
		d.pool.Close()
	}
	if d.face != nil {
		d.faceMu.Lock()
		defer d.faceMu.Unlock()
		return d.face.Close()
	}
	return nil
}

// Length returns the number of frames.
func (d *Document) Length() int { return d.length }

// Hold returns the number of frames each drawing lasts.
func (d *Document) Hold() int { return d.hold }

// Bounds implements regen.Image.
func (d *Document) Bounds() image.Rectangle { return d.bounds }

// ColorModel implements regen.Image.
func (d *Document) ColorModel() color.Model { return color.NRGBAModel }

// Projection implements regen.Image. The returned image is never written
// to after it is published.
func (d *Document) Projection() image.Image {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.projection
}

// IdenticalFrames implements export.FrameHolder: the frames left in the
// hold that contains frame.
func (d *Document) IdenticalFrames(frame int) int {
	if frame < 0 || frame >= d.length {
		return 1
	}
	n := d.hold - frame%d.hold
	return min(n, d.length-frame)
}

// Drawing returns the drawing shown at frame.
func (d *Document) Drawing(frame int) int {
	return frame / d.hold
}

// SubscribeFrames implements regen.Image.
func (d *Document) SubscribeFrames(ev regen.FrameEvents) regen.Subscription {
	s := &subscription{doc: d}
	s.live.Store(true)

	d.mu.Lock()
	d.subs[s] = ev
	d.mu.Unlock()
	return s
}

// RequestFrameRegeneration implements regen.Image. Only tiles inside
// bounds are redrawn; an empty bounds redraws everything.
func (d *Document) RequestFrameRegeneration(frame int, bounds image.Rectangle) {
	region := bounds.Intersect(d.bounds)
	if region.Empty() {
		region = d.bounds
	}

	d.mu.Lock()
	targets := d.listenersLocked()
	if d.closed || frame < 0 || frame >= d.length {
		d.mu.Unlock()
		animexport.Logger().Debug("procedural: frame rejected", "frame", frame, "length", d.length)
		go targets.cancelled()
		return
	}

	if d.cancel != nil {
		d.cancel()
	}
	d.gen++
	gen := d.gen
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	base := d.projection
	d.renders.Add(1)
	d.mu.Unlock()

	go d.render(ctx, gen, frame, region, base, targets)
}

func (d *Document) render(ctx context.Context, gen uint64, frame int, region image.Rectangle, base *image.NRGBA, targets listeners) {
	defer d.renders.Done()

	canvas := image.NewNRGBA(d.bounds)
	copy(canvas.Pix, base.Pix)

	s := sceneFor(d.Drawing(frame), d.bounds)
	tiles := parallel.SplitTiles(region, d.tileSize)
	tasks := make([]parallel.Task, len(tiles))
	for i, tile := range tiles {
		tasks[i] = func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.drawTile(canvas, tile)
			if d.updates != nil {
				d.updates.Schedule(updates.Info{Rect: tile, Payload: frame})
			}
			return nil
		}
	}

	err := d.pool.Run(ctx, tasks)
	if err == nil && d.face != nil {
		d.faceMu.Lock()
		drawLabel(canvas, d.face, d.bounds, fmt.Sprintf("#%03d", d.Drawing(frame)))
		d.faceMu.Unlock()
	}

	if d.beforePublish != nil {
		d.beforePublish(frame)
	}

	d.mu.Lock()
	if err != nil || gen != d.gen || d.closed {
		d.mu.Unlock()
		animexport.Logger().Debug("procedural: render abandoned", "frame", frame, "err", err)
		targets.cancelled()
		return
	}
	d.projection = canvas
	d.cancel = nil
	d.mu.Unlock()

	targets.ready(frame)
}

func (d *Document) listenersLocked() listeners {
	out := make(listeners, 0, len(d.subs))
	for s, ev := range d.subs {
		out = append(out, listener{sub: s, ev: ev})
	}
	return out
}

type listener struct {
	sub *subscription
	ev  regen.FrameEvents
}

// listeners are the subscribers at the time of a request. Events skip
// those that unsubscribed since.
type listeners []listener

func (ls listeners) ready(frame int) {
	for _, l := range ls {
		if l.sub.live.Load() {
			l.ev.FrameReady(frame)
		}
	}
}

func (ls listeners) cancelled() {
	for _, l := range ls {
		if l.sub.live.Load() {
			l.ev.FrameCancelled()
		}
	}
}

type subscription struct {
	doc  *Document
	live atomic.Bool
}

func (s *subscription) Unsubscribe() {
	if !s.live.CompareAndSwap(true, false) {
		return
	}
	s.doc.mu.Lock()
	delete(s.doc.subs, s)
	s.doc.mu.Unlock()
}
