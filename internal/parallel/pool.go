// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package parallel

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Run on a closed pool.
var ErrClosed = errors.New("parallel: pool closed")

// Task is one unit of work. It should return soon after ctx is done.
type Task func(ctx context.Context) error

// PanicError wraps a value recovered from a panicking Task.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("parallel: task panicked: %v", e.Value)
}

// WorkerPool is a fixed set of goroutines with one queue each.
// Idle workers steal from the other queues.
//
// Thread safety: WorkerPool is safe for concurrent use. Run must not be
// called from inside a Task of the same pool.
type WorkerPool struct {
	workers int
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewWorkerPool starts a pool with the given number of workers. If workers
// is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case work := <-own:
			work()
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case work := <-own:
				work()
			}
		}
	}
}

func (p *WorkerPool) drain(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
		default:
			return
		}
	}
}

// steal takes one item from another worker's queue, or returns nil.
func (p *WorkerPool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case work := <-p.queues[i]:
			return work
		default:
		}
	}
	return nil
}

// Run executes tasks on the pool and waits for all of them. The first
// failing task cancels the context passed to the others; its error is
// returned. A panic in a task is returned as a *PanicError.
func (p *WorkerPool) Run(ctx context.Context, tasks []Task) error {
	if !p.running.Load() {
		return ErrClosed
	}
	if len(tasks) == 0 {
		return ctx.Err()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg    sync.WaitGroup
		once  sync.Once
		first error
	)
	fail := func(err error) {
		once.Do(func() {
			first = err
			cancel()
		})
	}

	wg.Add(len(tasks))
	for i, task := range tasks {
		work := func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}
			if err := call(ctx, task); err != nil {
				fail(err)
			}
		}

		select {
		case p.queues[i%p.workers] <- work:
		case <-p.done:
			wg.Done()
			fail(ErrClosed)
		case <-ctx.Done():
			wg.Done()
			fail(ctx.Err())
		}
	}

	wg.Wait()
	return first
}

func call(ctx context.Context, task Task) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return task(ctx)
}

// Submit queues fn on the worker with the shortest queue. It reports
// false if the pool is closed.
func (p *WorkerPool) Submit(fn func()) bool {
	if fn == nil || !p.running.Load() {
		return false
	}

	idx := 0
	for i := 1; i < p.workers; i++ {
		if len(p.queues[i]) < len(p.queues[idx]) {
			idx = i
		}
	}

	select {
	case p.queues[idx] <- fn:
		return true
	case <-p.done:
		return false
	}
}

// Close stops accepting work, runs what is queued and stops the workers.
// Close is safe to call multiple times but must not race with Run.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool accepts work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// QueuedWork returns an approximate count of queued items.
func (p *WorkerPool) QueuedWork() int {
	total := 0
	for _, q := range p.queues {
		total += len(q)
	}
	return total
}
