package procedural

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/animexport/internal/parallel"
	"github.com/gogpu/animexport/updates"
)

const waitTimeout = 5 * time.Second

// =============================================================================
// Helpers
// =============================================================================

type events struct {
	ch chan string
}

func newEvents() *events {
	return &events{ch: make(chan string, 16)}
}

func (e *events) FrameReady(frame int) { e.ch <- fmt.Sprintf("ready %d", frame) }
func (e *events) FrameCancelled()      { e.ch <- "cancelled" }

func (e *events) next(t *testing.T) string {
	t.Helper()
	select {
	case ev := <-e.ch:
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a frame event")
		return ""
	}
}

func (e *events) none(t *testing.T) {
	t.Helper()
	select {
	case ev := <-e.ch:
		t.Fatalf("unexpected event %q", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func newDoc(t *testing.T, length int, opts ...Option) *Document {
	t.Helper()
	d, err := NewDocument(image.Rect(0, 0, 96, 64), length, opts...)
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func render(t *testing.T, d *Document, frame int) []byte {
	t.Helper()
	ev := newEvents()
	sub := d.SubscribeFrames(ev)
	defer sub.Unsubscribe()

	d.RequestFrameRegeneration(frame, d.Bounds())
	if got, want := ev.next(t), fmt.Sprintf("ready %d", frame); got != want {
		t.Fatalf("event = %q, want %q", got, want)
	}
	return bytes.Clone(d.Projection().(*image.NRGBA).Pix)
}

// =============================================================================
// Construction
// =============================================================================

func TestNewDocumentErrors(t *testing.T) {
	if _, err := NewDocument(image.Rectangle{}, 10); !errors.Is(err, ErrInvalidBounds) {
		t.Errorf("empty bounds: %v", err)
	}
	if _, err := NewDocument(image.Rect(0, 0, 8, 8), 0); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("zero length: %v", err)
	}
}

func TestIdenticalFrames(t *testing.T) {
	d := newDoc(t, 10, WithHold(3), WithoutLabel())

	tests := []struct{ frame, want int }{
		{0, 3}, {1, 2}, {2, 1}, {3, 3}, {7, 2}, {8, 1}, {9, 1}, {-1, 1}, {10, 1},
	}
	for _, tt := range tests {
		if got := d.IdenticalFrames(tt.frame); got != tt.want {
			t.Errorf("IdenticalFrames(%d) = %d, want %d", tt.frame, got, tt.want)
		}
	}
	if d.Drawing(8) != 2 {
		t.Errorf("Drawing(8) = %d", d.Drawing(8))
	}
}

func TestWithHoldClamp(t *testing.T) {
	d := newDoc(t, 4, WithHold(0), WithoutLabel())
	if d.Hold() != 1 {
		t.Errorf("Hold() = %d, want 1", d.Hold())
	}
}

// =============================================================================
// Rendering
// =============================================================================

func TestRenderPublishesProjection(t *testing.T) {
	d := newDoc(t, 24, WithTileSize(32), WithWorkers(2))

	blank := bytes.Clone(d.Projection().(*image.NRGBA).Pix)
	pix := render(t, d, 5)

	if bytes.Equal(blank, pix) {
		t.Error("projection unchanged after render")
	}
	for i := 3; i < len(pix); i += 4 {
		if pix[i] != 0xff {
			t.Fatalf("pixel %d not opaque", i/4)
		}
	}
	if d.Projection().Bounds() != d.Bounds() {
		t.Errorf("projection bounds = %v", d.Projection().Bounds())
	}
}

func TestHeldFramesAreIdentical(t *testing.T) {
	d := newDoc(t, 24, WithHold(2))

	f0 := render(t, d, 0)
	f1 := render(t, d, 1)
	f2 := render(t, d, 2)

	if !bytes.Equal(f0, f1) {
		t.Error("frames 0 and 1 of one hold differ")
	}
	if bytes.Equal(f1, f2) {
		t.Error("frames 1 and 2 of different holds are identical")
	}
}

func TestOutOfRangeFrameCancels(t *testing.T) {
	d := newDoc(t, 4, WithoutLabel())

	for _, frame := range []int{-1, 4, 100} {
		ev := newEvents()
		sub := d.SubscribeFrames(ev)
		d.RequestFrameRegeneration(frame, d.Bounds())
		if got := ev.next(t); got != "cancelled" {
			t.Errorf("frame %d: event = %q", frame, got)
		}
		sub.Unsubscribe()
	}
}

func TestNewerRequestSupersedes(t *testing.T) {
	d := newDoc(t, 10, WithoutLabel())

	release := make(chan struct{})
	d.beforePublish = func(frame int) {
		if frame == 1 {
			<-release
		}
	}

	first := newEvents()
	sub1 := d.SubscribeFrames(first)
	defer sub1.Unsubscribe()
	d.RequestFrameRegeneration(1, d.Bounds())

	second := newEvents()
	sub2 := d.SubscribeFrames(second)
	defer sub2.Unsubscribe()
	d.RequestFrameRegeneration(2, d.Bounds())

	if got := second.next(t); got != "ready 2" {
		t.Fatalf("second subscriber got %q", got)
	}
	close(release)

	got := map[string]bool{first.next(t): true, first.next(t): true}
	if !got["ready 2"] || !got["cancelled"] {
		t.Errorf("first subscriber got %v, want ready 2 and cancelled", got)
	}
	second.none(t)
}

func TestUnsubscribedGetsNothing(t *testing.T) {
	d := newDoc(t, 4, WithoutLabel())

	ev := newEvents()
	sub := d.SubscribeFrames(ev)
	sub.Unsubscribe()
	sub.Unsubscribe()

	render(t, d, 0)
	ev.none(t)
}

func TestCloseCancelsRequests(t *testing.T) {
	d, err := NewDocument(image.Rect(0, 0, 16, 16), 4, WithoutLabel())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	ev := newEvents()
	d.SubscribeFrames(ev)
	d.RequestFrameRegeneration(0, d.Bounds())
	if got := ev.next(t); got != "cancelled" {
		t.Errorf("event = %q", got)
	}
}

func TestCloneSharesPool(t *testing.T) {
	pool := parallel.NewWorkerPool(2)
	defer pool.Close()

	d := newDoc(t, 8, WithPool(pool), WithHold(2))
	c, err := d.Clone()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if c.pool != pool || c.ownsPool {
		t.Error("clone does not share the pool")
	}
	if !bytes.Equal(render(t, d, 3), render(t, c, 3)) {
		t.Error("clone renders different content")
	}
}

func TestRenderSchedulesTileUpdates(t *testing.T) {
	var (
		mu    sync.Mutex
		dirty image.Rectangle
	)
	queue := updates.NewCompressor()
	consumer := updates.NewConsumer(queue, func(info updates.Info) {
		mu.Lock()
		dirty = dirty.Union(info.Rect)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = consumer.Run(ctx) }()

	d := newDoc(t, 4, WithTileSize(16), WithUpdates(consumer), WithoutLabel())
	render(t, d, 0)

	deadline := time.Now().Add(waitTimeout)
	for {
		mu.Lock()
		got := dirty
		mu.Unlock()
		if got == d.Bounds() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("dirty region = %v, want %v", got, d.Bounds())
		}
		time.Sleep(time.Millisecond)
	}
}
