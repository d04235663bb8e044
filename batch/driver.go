// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package batch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/animexport"
	"github.com/gogpu/animexport/export"
	"github.com/gogpu/animexport/regen"
)

var (
	// ErrCancelled is returned by Run when a frame was cancelled or the
	// context ended before every frame was written.
	ErrCancelled = errors.New("batch: rendering cancelled")

	// ErrNoImages is returned by NewDriver without images.
	ErrNoImages = errors.New("batch: no images")

	// ErrAlreadyRun is returned by a second call to Run.
	ErrAlreadyRun = errors.New("batch: driver already run")
)

// Result summarizes a Run.
type Result struct {
	// Completed lists the written frames in ascending order.
	Completed []int
	// Cancelled is true when the run stopped early.
	Cancelled bool
}

// ProgressFunc is called on the loop after every completed frame.
type ProgressFunc func(done, total int)

// Option configures a Driver.
type Option func(*Driver)

// WithFrames renders frames instead of the whole export range. Duplicates
// are dropped; order is kept.
func WithFrames(frames []int) Option {
	return func(d *Driver) {
		d.frames = frames
	}
}

// WithProgress installs fn as the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(d *Driver) {
		d.progress = fn
	}
}

// WithRegenOptions passes opts to every renderer's Coordinator.
func WithRegenOptions(opts ...regen.Option) Option {
	return func(d *Driver) {
		d.regenOpts = append(d.regenOpts, opts...)
	}
}

type worker struct {
	r    *export.FramesSavingRenderer
	img  regen.Image
	busy bool
}

// Driver renders frames with one FramesSavingRenderer per image.
type Driver struct {
	loop      *regen.Loop
	frames    []int
	progress  ProgressFunc
	regenOpts []regen.Option

	workers []*worker
	started atomic.Bool
	done    chan Result

	// Loop-only state.
	next      int
	wanted    map[int]bool
	covered   map[int]bool
	reserved  map[int]bool
	cancelled bool
	finished  bool

	mu        sync.Mutex
	completed []int
}

// NewDriver creates a renderer for every image, all writing with cfg and
// exporter and all owned by loop.
func NewDriver(loop *regen.Loop, images []regen.Image, cfg export.Config, exporter export.Exporter, opts ...Option) (*Driver, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	d := &Driver{
		loop:     loop,
		done:     make(chan Result, 1),
		covered:  make(map[int]bool),
		reserved: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.frames == nil {
		d.frames = cfg.Range.Frames()
	}
	d.frames, d.wanted = dedupe(d.frames)

	for i, img := range images {
		w := &worker{img: img}
		ropts := append(slices.Clone(d.regenOpts), regen.WithListener(d.listener(w)))
		r, err := export.NewFramesSavingRenderer(loop, img, cfg, exporter, ropts...)
		if err != nil {
			return nil, fmt.Errorf("batch: renderer %d: %w", i, err)
		}
		w.r = r
		d.workers = append(d.workers, w)
	}
	return d, nil
}

// Frames returns the frames the driver renders, in dispatch order.
func (d *Driver) Frames() []int {
	return slices.Clone(d.frames)
}

// Renderers returns the driver's renderers.
func (d *Driver) Renderers() []*export.FramesSavingRenderer {
	out := make([]*export.FramesSavingRenderer, len(d.workers))
	for i, w := range d.workers {
		out[i] = w.r
	}
	return out
}

// Run renders every frame and blocks until all are written, one is
// cancelled or ctx ends. The loop must be running.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	if !d.started.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRun
	}

	animexport.Logger().Info("batch: started", "frames", len(d.frames), "renderers", len(d.workers))
	d.loop.Post(d.start)

	select {
	case res := <-d.done:
		if res.Cancelled {
			return res, ErrCancelled
		}
		return res, nil
	case <-ctx.Done():
		d.loop.Post(func(ctx context.Context) {
			d.cancelAll(ctx, "context")
		})
		return Result{Completed: d.snapshot(), Cancelled: true}, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
}

func (d *Driver) listener(w *worker) regen.Listener {
	return regen.ListenerFuncs{
		Completed: func(frame int) {
			d.loop.Post(func(ctx context.Context) { d.frameCompleted(ctx, w, frame) })
		},
		Cancelled: func(frame int) {
			d.loop.Post(func(ctx context.Context) { d.frameCancelled(ctx, w, frame) })
		},
	}
}

func (d *Driver) start(ctx context.Context) {
	for _, w := range d.workers {
		if !d.dispatch(ctx, w) {
			break
		}
	}
	d.maybeFinish()
}

// dispatch hands the next frame no renderer has written or is writing to
// w, reserving the span the export will cover. It reports false when
// nothing is left.
func (d *Driver) dispatch(ctx context.Context, w *worker) bool {
	if d.cancelled {
		return false
	}
	for d.next < len(d.frames) {
		frame := d.frames[d.next]
		d.next++
		if d.covered[frame] || d.reserved[frame] {
			continue
		}
		span := w.r.Span(w.img, frame)
		for f := span.Start; f <= span.End; f++ {
			d.reserved[f] = true
		}
		w.busy = true
		w.r.StartFrameRegeneration(ctx, w.img, frame)
		return true
	}
	return false
}

func (d *Driver) frameCompleted(ctx context.Context, w *worker, frame int) {
	w.busy = false

	span := w.r.LastExported()
	if !span.Contains(frame) {
		span = export.NewRange(frame, frame)
	}
	d.mu.Lock()
	for f := span.Start; f <= span.End; f++ {
		if d.wanted[f] && !d.covered[f] {
			d.covered[f] = true
			d.completed = append(d.completed, f)
		}
	}
	done := len(d.completed)
	d.mu.Unlock()

	animexport.Logger().Debug("batch: frame done", "frame", frame, "span", span.String())
	if d.progress != nil {
		d.progress(done, len(d.frames))
	}

	d.dispatch(ctx, w)
	d.maybeFinish()
}

func (d *Driver) frameCancelled(ctx context.Context, w *worker, frame int) {
	w.busy = false
	animexport.Logger().Info("batch: frame cancelled", "frame", frame)
	d.cancelAll(ctx, "frame cancelled")
	d.maybeFinish()
}

func (d *Driver) cancelAll(ctx context.Context, reason string) {
	if d.finished {
		return
	}
	if !d.cancelled {
		animexport.Logger().Info("batch: cancelling", "reason", reason)
	}
	d.cancelled = true
	for _, w := range d.workers {
		if w.busy && w.r.IsActive() {
			w.r.CancelCurrentFrameRendering(ctx)
		}
	}
	d.maybeFinish()
}

func (d *Driver) maybeFinish() {
	if d.finished {
		return
	}
	for _, w := range d.workers {
		if w.busy {
			return
		}
	}
	if !d.cancelled && d.next < len(d.frames) {
		return
	}

	d.finished = true
	res := Result{Completed: d.snapshot(), Cancelled: d.cancelled}
	animexport.Logger().Info("batch: finished", "completed", len(res.Completed), "cancelled", res.Cancelled)
	d.done <- res
}

func (d *Driver) snapshot() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := slices.Clone(d.completed)
	slices.Sort(out)
	return out
}

func dedupe(frames []int) ([]int, map[int]bool) {
	seen := make(map[int]bool, len(frames))
	out := make([]int, 0, len(frames))
	for _, f := range frames {
		if f < 0 || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, seen
}
