package regen

import (
	"context"
	"sync"
)

// ownerKey marks contexts handed to tasks running on a Loop.
type ownerKey struct{}

// Loop is a serial task queue executed by the goroutine that calls Run.
// It plays the role of the controller's owning thread: everything posted to
// it runs one task at a time, in posting order.
//
// Post is safe for concurrent use and never blocks.
type Loop struct {
	mu      sync.Mutex
	pending []func(context.Context)
	wake    chan struct{}
}

// NewLoop creates an idle loop. Tasks posted before Run are kept.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn to run on the loop.
func (l *Loop) Post(fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do posts fn and waits until it has run or ctx is done.
// Calling Do from a task already running on l would deadlock; such calls
// run fn inline instead.
func (l *Loop) Do(ctx context.Context, fn func(ctx context.Context)) error {
	if l.Owns(ctx) {
		fn(ctx)
		return nil
	}

	done := make(chan struct{})
	l.Post(func(ctx context.Context) {
		defer close(done)
		fn(ctx)
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Owns reports whether ctx was handed out by l to a running task.
func (l *Loop) Owns(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(ownerKey{}).(*Loop)
	return owner == l
}

// Run executes posted tasks until ctx is done and returns ctx.Err().
// Tasks still queued at that point are discarded.
func (l *Loop) Run(ctx context.Context) error {
	taskCtx := context.WithValue(ctx, ownerKey{}, l)
	for {
		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.pending = nil
			l.mu.Unlock()
			return ctx.Err()
		case <-l.wake:
		}

		for {
			fn := l.next()
			if fn == nil {
				break
			}
			fn(taskCtx)
			if ctx.Err() != nil {
				break
			}
		}
	}
}

// next pops the oldest queued task, or nil.
func (l *Loop) next() func(context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return nil
	}
	fn := l.pending[0]
	l.pending[0] = nil
	l.pending = l.pending[1:]
	return fn
}
