package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/animexport"
	"github.com/gogpu/animexport/batch"
	"github.com/gogpu/animexport/export"
	"github.com/gogpu/animexport/internal/parallel"
	"github.com/gogpu/animexport/internal/procedural"
	"github.com/gogpu/animexport/regen"
	"github.com/gogpu/animexport/updates"
)

const flushTimeout = 2 * time.Second

type RenderCmd struct {
	Prefix string `arg:"" name:"prefix" help:"Output path prefix, e.g. out/walk_" type:"path"`

	Suffix string `help:"File name suffix" default:".png" env:"ANIMEXPORT_SUFFIX"`
	Format string `help:"Format id (image/png, png, jpeg, bmp, tiff); derived from --suffix when empty" env:"ANIMEXPORT_FORMAT"`

	Width  int `help:"Frame width in pixels" default:"320"`
	Height int `help:"Frame height in pixels" default:"180"`
	Length int `help:"Animation length in frames" default:"48"`
	Hold   int `help:"Frames each drawing is held for" default:"2"`

	Start  int `help:"First frame to export" default:"0"`
	End    int `help:"Last frame to export, -1 for the last frame" default:"-1"`
	Offset int `help:"Number written for the first exported frame" default:"0"`

	Renderers int           `help:"Frames rendered concurrently" default:"2" env:"ANIMEXPORT_RENDERERS"`
	Workers   int           `help:"Tile workers, 0 for GOMAXPROCS" default:"0" env:"ANIMEXPORT_WORKERS"`
	Timeout   time.Duration `help:"Give up on a frame after this long" default:"10s"`
	Quality   int           `help:"JPEG quality (1-100)" default:"90"`

	NoLabel     bool `help:"Do not draw the drawing number"`
	NoProgress  bool `help:"Hide the progress bar"`
	TileUpdates bool `help:"Log coalesced tile updates at debug level"`
}

func (c *RenderCmd) Run(ctx context.Context, cli *CLI) error {
	logger, err := newLogger(os.Stderr, cli.LogLevel)
	if err != nil {
		return err
	}
	animexport.SetLogger(logger)
	defer animexport.SetLogger(nil)

	var progress io.Writer
	if !c.NoProgress {
		progress = os.Stderr
	}

	res, err := c.render(ctx, progress)
	if err != nil {
		return err
	}
	logger.Info("export finished", "frames", len(res.Completed), "prefix", c.Prefix)
	return nil
}

func (c *RenderCmd) exportRange() export.Range {
	end := c.End
	if end < 0 {
		end = c.Length - 1
	}
	return export.NewRange(c.Start, end)
}

func (c *RenderCmd) config() export.Config {
	opts := export.DefaultOptions()
	opts.JPEGQuality = c.Quality
	return export.Config{
		Prefix:                  c.Prefix,
		Suffix:                  c.Suffix,
		Format:                  c.Format,
		Range:                   c.exportRange(),
		SequenceNumberingOffset: c.Offset,
		Options:                 opts,
	}
}

// render exports the frames and reports progress to w when it is non-nil.
func (c *RenderCmd) render(ctx context.Context, w io.Writer) (batch.Result, error) {
	if c.Renderers < 1 {
		return batch.Result{}, fmt.Errorf("renderers must be at least 1, got %d", c.Renderers)
	}
	if dir := filepath.Dir(c.Prefix + "0000"); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return batch.Result{}, fmt.Errorf("create output directory: %w", err)
		}
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	g, gctx := errgroup.WithContext(loopCtx)

	loop := regen.NewLoop()
	g.Go(func() error {
		if err := loop.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	pool := parallel.NewWorkerPool(c.Workers)
	defer pool.Close()

	opts := []procedural.Option{procedural.WithHold(c.Hold), procedural.WithPool(pool)}
	if c.NoLabel {
		opts = append(opts, procedural.WithoutLabel())
	}
	if c.TileUpdates {
		consumer := updates.NewConsumer(updates.NewCompressor(), func(info updates.Info) {
			animexport.Logger().Debug("tile updated", "rect", info.Rect.String(), "frame", info.Payload)
		}, updates.WithRateLimit(30, 4))
		g.Go(func() error {
			if err := consumer.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		opts = append(opts, procedural.WithUpdates(consumer))
	}

	docs, err := c.documents(opts)
	if err != nil {
		stopLoop()
		_ = g.Wait()
		return batch.Result{}, err
	}
	defer func() {
		for i := len(docs) - 1; i >= 0; i-- {
			_ = docs[i].Close()
		}
	}()

	images := make([]regen.Image, len(docs))
	for i, d := range docs {
		images[i] = d
	}

	cfg := c.config()
	var bar *progressbar.ProgressBar
	driverOpts := []batch.Option{batch.WithRegenOptions(regen.WithTimeout(c.Timeout))}
	if w != nil {
		bar = progressbar.NewOptions(cfg.Range.Duration(),
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("exporting"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		driverOpts = append(driverOpts, batch.WithProgress(func(done, _ int) {
			_ = bar.Set(done)
		}))
	}

	driver, err := batch.NewDriver(loop, images, cfg, export.FileExporter{}, driverOpts...)
	if err != nil {
		stopLoop()
		_ = g.Wait()
		return batch.Result{}, err
	}

	var res batch.Result
	g.Go(func() error {
		defer stopLoop()
		var runErr error
		res, runErr = driver.Run(ctx)
		flushCtx, cancel := context.WithTimeout(gctx, flushTimeout)
		defer cancel()
		_ = loop.Do(flushCtx, func(context.Context) {})
		return runErr
	})

	if err := g.Wait(); err != nil {
		return res, err
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return res, nil
}

func (c *RenderCmd) documents(opts []procedural.Option) ([]*procedural.Document, error) {
	first, err := procedural.NewDocument(image.Rect(0, 0, c.Width, c.Height), c.Length, opts...)
	if err != nil {
		return nil, err
	}
	docs := []*procedural.Document{first}
	for range c.Renderers - 1 {
		d, err := first.Clone()
		if err != nil {
			for _, d := range docs {
				_ = d.Close()
			}
			return nil, err
		}
		docs = append(docs, d)
	}
	animexport.Logger().Debug("documents ready", "count", len(docs))
	return docs, nil
}
