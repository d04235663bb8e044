package updates

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/gogpu/animexport"
)

// Handler processes one dequeued update. It runs on the consumer goroutine
// and never under the Compressor lock.
type Handler func(info Info)

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithRateLimit caps how often the consumer starts a drain pass.
// Updates arriving in between stay in the Compressor and coalesce there.
// A non-positive hz disables the limit.
func WithRateLimit(hz float64, burst int) ConsumerOption {
	return func(c *Consumer) {
		if hz <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(hz), burst)
	}
}

// Consumer drains a Compressor on a single goroutine.
type Consumer struct {
	queue   *Compressor
	handle  Handler
	limiter *rate.Limiter
	wake    chan struct{}
}

// NewConsumer creates a consumer for queue. Call Run to start draining.
func NewConsumer(queue *Compressor, handle Handler, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		queue:  queue,
		handle: handle,
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schedule queues info and wakes the consumer if the queue was empty.
// Safe for concurrent use.
func (c *Consumer) Schedule(info Info) {
	if c.queue.Put(info) {
		c.Notify()
	}
}

// Notify wakes the consumer. Multiple notifications before the consumer
// runs collapse into one.
func (c *Consumer) Notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue every time the consumer is woken, until ctx is
// done. Entries still queued when ctx ends are left in the Compressor.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		c.drain(ctx)
	}
}

// drain processes queued entries until the queue is empty.
func (c *Consumer) drain(ctx context.Context) {
	n := 0
	for ctx.Err() == nil {
		info, ok := c.queue.Take()
		if !ok {
			break
		}
		c.handle(info)
		n++
	}
	if n > 0 {
		animexport.Logger().Debug("updates: drained", "count", n)
	}
}
