// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package regen

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gogpu/animexport"
)

// State is the externally visible request state of a Coordinator.
type State int

const (
	// StateIdle means no request is outstanding.
	StateIdle State = iota

	// StateRequested means a regeneration was issued and has not been
	// finalized yet.
	StateRequested
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRequested:
		return "Requested"
	default:
		return "Unknown"
	}
}

// Outcome is how the most recent request ended.
type Outcome int32

const (
	// OutcomeNone means no request has been finalized yet.
	OutcomeNone Outcome = iota

	// OutcomeCompleted means the last request completed.
	OutcomeCompleted

	// OutcomeCancelled means the last request was cancelled, timed out,
	// or failed in the completion hook.
	OutcomeCancelled
)

// String returns a string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "None"
	case OutcomeCompleted:
		return "Completed"
	case OutcomeCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Handler holds the hooks a Coordinator runs before finalizing a request.
// An implementation must eventually call NotifyFrameCompleted or
// NotifyFrameCancelled for the frame it was given.
type Handler interface {
	// HandleFrameCompleted runs on the goroutine that raised FrameReady.
	// ctx is not owned by the loop.
	HandleFrameCompleted(ctx context.Context, frame int)

	// HandleFrameCancelled runs on the owning loop for timeouts and
	// image-side cancellations, or on the caller of
	// CancelCurrentFrameRendering.
	HandleFrameCancelled(ctx context.Context, frame int)
}

// Listener receives the final notification of each request on the
// owning loop, after that request has ended, so a listener may start the
// next request right away. A request superseded by StartFrameRegeneration
// is reported once the newer request has been issued.
type Listener interface {
	FrameCompleted(frame int)
	FrameCancelled(frame int)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Completed func(frame int)
	Cancelled func(frame int)
}

// FrameCompleted implements Listener.
func (f ListenerFuncs) FrameCompleted(frame int) {
	if f.Completed != nil {
		f.Completed(frame)
	}
}

// FrameCancelled implements Listener.
func (f ListenerFuncs) FrameCancelled(frame int) {
	if f.Cancelled != nil {
		f.Cancelled(frame)
	}
}

// request is the single live regeneration of a Coordinator.
// image and frame never change after creation; finalized is written only
// on the owning loop and read from notifier goroutines.
type request struct {
	image     Image
	frame     int
	finalized atomic.Bool
}

// Coordinator drives one frame regeneration at a time.
//
// Thread safety: StartFrameRegeneration and CancelCurrentFrameRendering
// must be called from tasks running on the owning Loop. Calls from
// elsewhere are logged and carried out best-effort. Notify* and the
// accessors are safe from any goroutine.
type Coordinator struct {
	loop     *Loop
	clock    Clock
	timeout  time.Duration
	handler  Handler
	listener Listener

	// active is written only on the loop.
	active atomic.Pointer[request]
	last   atomic.Int32

	// Loop-only state.
	subs  subscriptions
	timer Timer
}

// NewCoordinator creates an idle coordinator owned by loop.
func NewCoordinator(loop *Loop, opts ...Option) *Coordinator {
	c := &Coordinator{
		loop:    loop,
		clock:   SystemClock{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.handler == nil {
		c.handler = notifyingHandler{c}
	}
	if c.listener == nil {
		c.listener = ListenerFuncs{}
	}
	return c
}

// Loop returns the loop that owns c.
func (c *Coordinator) Loop() *Loop {
	return c.loop
}

// Timeout returns the request timeout.
func (c *Coordinator) Timeout() time.Duration {
	return c.timeout
}

// StartFrameRegeneration asks img to regenerate frame and returns without
// waiting. The outcome arrives later as a Listener notification.
//
// A request that is still outstanding is cancelled first.
func (c *Coordinator) StartFrameRegeneration(ctx context.Context, img Image, frame int) {
	c.checkOwner(ctx, "StartFrameRegeneration")

	if img == nil || frame < 0 {
		animexport.Logger().Warn("regen: invalid regeneration request", "frame", frame, "image", img != nil)
		return
	}

	prev := c.active.Load()
	superseded := prev != nil && !prev.finalized.Load()
	if superseded {
		animexport.Logger().Debug("regen: superseding outstanding request", "frame", prev.frame)
		c.settle(prev, OutcomeCancelled)
	}

	r := &request{image: img, frame: frame}
	c.active.Store(r)

	c.subs.clear()
	c.subs.add(img.SubscribeFrames(&frameEvents{c: c, req: r}))

	c.timer = c.clock.AfterFunc(c.timeout, func() {
		c.loop.Post(func(ctx context.Context) {
			c.cancelFromEvent(ctx, r, "timeout")
		})
	})

	animexport.Logger().Debug("regen: frame requested", "frame", frame)
	img.RequestFrameRegeneration(frame, img.Bounds())

	// The new request is in place, so a listener may replace it.
	if superseded {
		c.deliver(prev.frame, OutcomeCancelled)
	}
}

// CancelCurrentFrameRendering cancels the outstanding request. Calling it
// while idle is a programming error; it is logged and ignored.
func (c *Coordinator) CancelCurrentFrameRendering(ctx context.Context) {
	c.checkOwner(ctx, "CancelCurrentFrameRendering")

	r := c.active.Load()
	if r == nil || r.finalized.Load() {
		animexport.Logger().Warn("regen: cancel requested while idle")
		return
	}
	c.handler.HandleFrameCancelled(withRequest(ctx, r), r.frame)
}

// NotifyFrameCompleted finalizes the current request as completed.
// When ctx belongs to the owning loop the request is finalized
// immediately, otherwise the call is posted to the loop.
func (c *Coordinator) NotifyFrameCompleted(ctx context.Context, frame int) {
	c.notify(ctx, frame, OutcomeCompleted)
}

// NotifyFrameCancelled finalizes the current request as cancelled. See
// NotifyFrameCompleted for where it runs.
func (c *Coordinator) NotifyFrameCancelled(ctx context.Context, frame int) {
	c.notify(ctx, frame, OutcomeCancelled)
}

// State returns StateRequested while a request is outstanding.
func (c *Coordinator) State() State {
	if c.IsActive() {
		return StateRequested
	}
	return StateIdle
}

// IsActive reports whether a request is outstanding.
func (c *Coordinator) IsActive() bool {
	r := c.active.Load()
	return r != nil && !r.finalized.Load()
}

// RequestedImage returns the image of the outstanding request, or nil.
func (c *Coordinator) RequestedImage() Image {
	if r := c.active.Load(); r != nil && !r.finalized.Load() {
		return r.image
	}
	return nil
}

// RequestedFrame returns the frame of the outstanding request, or -1.
func (c *Coordinator) RequestedFrame() int {
	if r := c.active.Load(); r != nil && !r.finalized.Load() {
		return r.frame
	}
	return -1
}

// LastOutcome returns how the most recently finalized request ended.
func (c *Coordinator) LastOutcome() Outcome {
	return Outcome(c.last.Load())
}

// requestKey carries the request a hook was invoked for.
type requestKey struct{}

func withRequest(ctx context.Context, r *request) context.Context {
	return context.WithValue(ctx, requestKey{}, r)
}

// notify finalizes the request the hook was invoked for, or the current
// one when ctx does not name a request. A late notification for an ended
// request therefore never finalizes a newer request for the same frame.
func (c *Coordinator) notify(ctx context.Context, frame int, outcome Outcome) {
	r, ok := ctx.Value(requestKey{}).(*request)
	if !ok {
		r = c.active.Load()
	}
	if c.loop.Owns(ctx) {
		c.finalize(r, frame, outcome)
		return
	}
	c.loop.Post(func(context.Context) {
		c.finalize(r, frame, outcome)
	})
}

// frameReady handles FrameReady on the image's goroutine.
func (c *Coordinator) frameReady(r *request, frame int) {
	if !c.isLive(r) || r.frame != frame {
		animexport.Logger().Debug("regen: dropped stale frame ready", "frame", frame)
		return
	}
	c.handler.HandleFrameCompleted(withRequest(context.Background(), r), frame)
}

// cancelFromEvent handles timeouts and image cancellations on the loop.
func (c *Coordinator) cancelFromEvent(ctx context.Context, r *request, reason string) {
	if !c.isLive(r) {
		animexport.Logger().Debug("regen: dropped stale cancellation", "reason", reason)
		return
	}
	animexport.Logger().Debug("regen: frame cancelled", "frame", r.frame, "reason", reason)
	c.handler.HandleFrameCancelled(withRequest(ctx, r), r.frame)
}

// finalize ends r with outcome. It runs on the loop. Attempts for a
// request that is no longer current, already finalized or for another
// frame are dropped.
func (c *Coordinator) finalize(r *request, frame int, outcome Outcome) {
	if !c.isLive(r) || r.frame != frame {
		animexport.Logger().Debug("regen: dropped stale notification", "frame", frame, "outcome", outcome)
		return
	}
	c.settle(r, outcome)
	c.deliver(frame, outcome)
}

// settle returns the coordinator to idle without notifying the listener.
func (c *Coordinator) settle(r *request, outcome Outcome) {
	r.finalized.Store(true)
	c.subs.clear()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.active.CompareAndSwap(r, nil)
	c.last.Store(int32(outcome))

	animexport.Logger().Debug("regen: frame finalized", "frame", r.frame, "outcome", outcome)
}

func (c *Coordinator) deliver(frame int, outcome Outcome) {
	if outcome == OutcomeCompleted {
		c.listener.FrameCompleted(frame)
	} else {
		c.listener.FrameCancelled(frame)
	}
}

func (c *Coordinator) isLive(r *request) bool {
	return r != nil && !r.finalized.Load() && c.active.Load() == r
}

// checkOwner logs calls made outside the owning loop.
func (c *Coordinator) checkOwner(ctx context.Context, op string) {
	if !c.loop.Owns(ctx) {
		animexport.Logger().Warn("regen: called outside the owning loop", "op", op)
	}
}

// notifyingHandler is the Handler used when none is installed: it
// finalizes right away.
type notifyingHandler struct {
	c *Coordinator
}

func (h notifyingHandler) HandleFrameCompleted(ctx context.Context, frame int) {
	h.c.NotifyFrameCompleted(ctx, frame)
}

func (h notifyingHandler) HandleFrameCancelled(ctx context.Context, frame int) {
	h.c.NotifyFrameCancelled(ctx, frame)
}

// frameEvents binds image events to the request they were subscribed for.
type frameEvents struct {
	c   *Coordinator
	req *request
}

func (e *frameEvents) FrameReady(frame int) {
	e.c.frameReady(e.req, frame)
}

func (e *frameEvents) FrameCancelled() {
	e.c.loop.Post(func(ctx context.Context) {
		e.c.cancelFromEvent(ctx, e.req, "image")
	})
}
