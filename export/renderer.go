// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package export

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/animexport"
	gimage "github.com/gogpu/animexport/internal/image"
	"github.com/gogpu/animexport/regen"
)

// FrameHolder is implemented by images that know how many frames,
// starting at a given one, share identical content. The renderer writes
// one file per such frame from a single regeneration.
type FrameHolder interface {
	IdenticalFrames(frame int) int
}

// Stats counts the files handled by a FramesSavingRenderer.
type Stats struct {
	Written int
	Failed  int
}

// FramesSavingRenderer regenerates frames through its embedded
// Coordinator and writes every completed frame to a numbered file.
//
// The completion hook runs on the image's notifying goroutine. The
// private buffer it writes into is guarded by a mutex, so a renderer can
// be driven by one Loop while its image renders elsewhere.
type FramesSavingRenderer struct {
	*regen.Coordinator

	prefix   string
	suffix   string
	format   string
	rng      Range
	offset   int
	options  Options
	exporter Exporter

	mu    sync.Mutex
	buf   *gimage.ImageBuf
	stats Stats
	last  Range
}

// NewFramesSavingRenderer creates a renderer for frames of img, owned by
// loop. A nil exporter selects FileExporter. opts configure the embedded
// Coordinator; a WithHandler among them is overridden by the renderer.
func NewFramesSavingRenderer(loop *regen.Loop, img regen.Image, cfg Config, exporter Exporter, opts ...regen.Option) (*FramesSavingRenderer, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrEmptyImage)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrEmptyImage
	}
	if !cfg.Range.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRange, cfg.Range)
	}

	var (
		format string
		err    error
	)
	if cfg.Format == "" {
		format, err = FormatForPath(cfg.Suffix)
	} else {
		format, err = NormalizeFormat(cfg.Format)
	}
	if err != nil {
		return nil, err
	}

	buf, err := gimage.NewImageBuf(b.Dx(), b.Dy(), gimage.FormatForModel(img.ColorModel()))
	if err != nil {
		return nil, fmt.Errorf("export: allocate frame buffer: %w", err)
	}

	if exporter == nil {
		exporter = FileExporter{}
	}

	r := &FramesSavingRenderer{
		prefix:   normalizeName(cfg.Prefix),
		suffix:   normalizeName(cfg.Suffix),
		format:   format,
		rng:      cfg.Range,
		offset:   cfg.SequenceNumberingOffset,
		options:  cfg.Options,
		exporter: exporter,
		buf:      buf,
		last:     Range{Start: -1, End: -1},
	}
	opts = append(opts[:len(opts):len(opts)], regen.WithHandler(r))
	r.Coordinator = regen.NewCoordinator(loop, opts...)
	return r, nil
}

// Format returns the normalized format id.
func (r *FramesSavingRenderer) Format() string { return r.format }

// Range returns the export range.
func (r *FramesSavingRenderer) Range() Range { return r.rng }

// Ordinal returns the sequence number written for frame.
func (r *FramesSavingRenderer) Ordinal(frame int) int {
	return Ordinal(frame, r.rng, r.offset)
}

// FrameFilename returns the path frame is written to.
func (r *FramesSavingRenderer) FrameFilename(frame int) string {
	return Filename(r.prefix, r.Ordinal(frame), r.suffix)
}

// Stats returns the number of files written and failed so far.
func (r *FramesSavingRenderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// LastExported returns the frames written by the most recent successful
// export, or {-1, -1} before the first one.
func (r *FramesSavingRenderer) LastExported() Range {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// HandleFrameCompleted implements regen.Handler. It writes frame, plus any
// identical frames that follow it, and finalizes the request.
func (r *FramesSavingRenderer) HandleFrameCompleted(ctx context.Context, frame int) {
	img := r.RequestedImage()
	if img == nil {
		return
	}

	span := r.Span(img, frame)
	if err := r.save(img, span); err != nil {
		animexport.Logger().Warn("export: frame export failed", "frame", frame, "err", err)
		r.NotifyFrameCancelled(ctx, frame)
		return
	}
	r.NotifyFrameCompleted(ctx, frame)
}

// HandleFrameCancelled implements regen.Handler.
func (r *FramesSavingRenderer) HandleFrameCancelled(ctx context.Context, frame int) {
	r.NotifyFrameCancelled(ctx, frame)
}

// Span returns the frames an export of frame writes: frame and the
// identical frames that follow it, clipped to the export range.
func (r *FramesSavingRenderer) Span(img regen.Image, frame int) Range {
	n := 1
	if h, ok := img.(FrameHolder); ok {
		if m := h.IdenticalFrames(frame); m > 1 {
			n = m
		}
	}
	end := frame + n - 1
	if end > r.rng.End {
		end = max(frame, r.rng.End)
	}
	return Range{Start: frame, End: end}
}

func (r *FramesSavingRenderer) save(img regen.Image, span Range) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.buf.CopyFrom(img.Projection(), img.Bounds()); err != nil {
		r.stats.Failed++
		return fmt.Errorf("export: copy projection: %w", err)
	}
	view := r.buf.Image()

	for f := span.Start; f <= span.End; f++ {
		path := r.FrameFilename(f)
		if err := r.exporter.Export(path, r.format, view, r.options); err != nil {
			r.stats.Failed++
			return fmt.Errorf("export: frame %d to %s: %w", f, path, err)
		}
		r.stats.Written++
		animexport.Logger().Info("export: wrote frame", "frame", f, "path", path)
	}
	r.last = span
	return nil
}
