// Package regentest provides fakes for testing code built on package regen:
// a manually fired Clock, a scriptable Image and a Listener that records
// notifications.
package regentest

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/animexport/regen"
)

// WaitTimeout bounds every wait in this package.
const WaitTimeout = 5 * time.Second

// =============================================================================
// Loop helpers
// =============================================================================

// RunLoop starts a regen.Loop on its own goroutine and stops it when the
// test ends.
func RunLoop(tb testing.TB) *regen.Loop {
	tb.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	loop := regen.NewLoop()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()

	tb.Cleanup(func() {
		cancel()
		<-done
	})
	return loop
}

// Do runs fn on loop and waits for it, failing the test on timeout.
func Do(tb testing.TB, loop *regen.Loop, fn func(ctx context.Context)) {
	tb.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), WaitTimeout)
	defer cancel()
	if err := loop.Do(ctx, fn); err != nil {
		tb.Fatalf("loop.Do: %v", err)
	}
}

// Flush waits until every task posted to loop so far has run.
func Flush(tb testing.TB, loop *regen.Loop) {
	tb.Helper()
	Do(tb, loop, func(context.Context) {})
}

// =============================================================================
// Clock
// =============================================================================

// Clock is a regen.Clock whose timers fire only when Fire is called.
type Clock struct {
	mu     sync.Mutex
	timers []*Timer
	last   time.Duration
}

// NewClock creates a Clock with no timers.
func NewClock() *Clock {
	return &Clock{}
}

// AfterFunc implements regen.Clock.
func (c *Clock) AfterFunc(d time.Duration, f func()) regen.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &Timer{clock: c, f: f}
	c.timers = append(c.timers, t)
	c.last = d
	return t
}

// Fire runs every armed timer on the calling goroutine and returns how many
// fired.
func (c *Clock) Fire() int {
	c.mu.Lock()
	var due []*Timer
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}

// Pending returns the number of armed timers.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// LastDuration returns the duration passed to the latest AfterFunc.
func (c *Clock) LastDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Timer is a timer created by Clock.
type Timer struct {
	clock   *Clock
	f       func()
	fired   bool
	stopped bool
}

// Stop implements regen.Timer.
func (t *Timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// =============================================================================
// Image
// =============================================================================

// Image is a regen.Image driven by the test: it records requests and emits
// ready/cancelled events only when told to.
type Image struct {
	mu         sync.Mutex
	bounds     image.Rectangle
	projection image.Image
	requests   []int
	live       map[*subscription]regen.FrameEvents
	history    []regen.FrameEvents
	onRequest  func(frame int)
	identical  int
}

// NewImage creates an Image whose projection is an opaque *image.NRGBA of
// the given bounds.
func NewImage(bounds image.Rectangle) *Image {
	proj := image.NewNRGBA(bounds)
	for i := 3; i < len(proj.Pix); i += 4 {
		proj.Pix[i] = 0xff
	}
	return &Image{
		bounds:     bounds,
		projection: proj,
		live:       make(map[*subscription]regen.FrameEvents),
		identical:  1,
	}
}

// Bounds implements regen.Image.
func (i *Image) Bounds() image.Rectangle { return i.bounds }

// ColorModel implements regen.Image.
func (i *Image) ColorModel() color.Model {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.projection.ColorModel()
}

// Projection implements regen.Image.
func (i *Image) Projection() image.Image {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.projection
}

// SetProjection replaces the image returned by Projection.
func (i *Image) SetProjection(img image.Image) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.projection = img
}

// RequestFrameRegeneration implements regen.Image.
func (i *Image) RequestFrameRegeneration(frame int, _ image.Rectangle) {
	i.mu.Lock()
	i.requests = append(i.requests, frame)
	fn := i.onRequest
	i.mu.Unlock()

	if fn != nil {
		fn(frame)
	}
}

// OnRequest installs fn to run synchronously inside
// RequestFrameRegeneration.
func (i *Image) OnRequest(fn func(frame int)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.onRequest = fn
}

// Requests returns the frames requested so far.
func (i *Image) Requests() []int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]int(nil), i.requests...)
}

// SubscribeFrames implements regen.Image.
func (i *Image) SubscribeFrames(ev regen.FrameEvents) regen.Subscription {
	i.mu.Lock()
	defer i.mu.Unlock()

	s := &subscription{img: i}
	i.live[s] = ev
	i.history = append(i.history, ev)
	return s
}

// Subscribers returns the number of live subscriptions.
func (i *Image) Subscribers() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.live)
}

// Subscription returns the n-th FrameEvents ever subscribed, live or not.
// Tests use it to deliver events that were already in flight when the
// subscriber went away.
func (i *Image) Subscription(n int) regen.FrameEvents {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.history[n]
}

// Ready raises FrameReady(frame) on the calling goroutine for every live
// subscriber.
func (i *Image) Ready(frame int) {
	for _, ev := range i.snapshot() {
		ev.FrameReady(frame)
	}
}

// Cancel raises FrameCancelled on the calling goroutine for every live
// subscriber.
func (i *Image) Cancel() {
	for _, ev := range i.snapshot() {
		ev.FrameCancelled()
	}
}

// SetIdenticalFrames makes IdenticalFrames report n for every frame.
func (i *Image) SetIdenticalFrames(n int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.identical = n
}

// IdenticalFrames reports how many frames starting at frame share its
// content.
func (i *Image) IdenticalFrames(int) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.identical
}

func (i *Image) snapshot() []regen.FrameEvents {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]regen.FrameEvents, 0, len(i.live))
	for _, ev := range i.live {
		out = append(out, ev)
	}
	return out
}

type subscription struct {
	img *Image
}

func (s *subscription) Unsubscribe() {
	s.img.mu.Lock()
	defer s.img.mu.Unlock()
	delete(s.img.live, s)
}

// =============================================================================
// Recorder
// =============================================================================

// Event is one final notification.
type Event struct {
	Outcome regen.Outcome
	Frame   int
}

// Recorder is a regen.Listener that keeps every notification.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event

	// Then, if set, runs after each notification is recorded, on the
	// loop goroutine.
	Then func(ev Event)
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{ch: make(chan Event, 256)}
}

// FrameCompleted implements regen.Listener.
func (r *Recorder) FrameCompleted(frame int) {
	r.add(Event{Outcome: regen.OutcomeCompleted, Frame: frame})
}

// FrameCancelled implements regen.Listener.
func (r *Recorder) FrameCancelled(frame int) {
	r.add(Event{Outcome: regen.OutcomeCancelled, Frame: frame})
}

func (r *Recorder) add(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	then := r.Then
	r.mu.Unlock()

	r.ch <- ev
	if then != nil {
		then(ev)
	}
}

// Wait returns the next notification, failing the test on timeout.
func (r *Recorder) Wait(tb testing.TB) Event {
	tb.Helper()

	select {
	case ev := <-r.ch:
		return ev
	case <-time.After(WaitTimeout):
		tb.Fatal("timed out waiting for a frame notification")
		return Event{}
	}
}

// Events returns every notification recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
