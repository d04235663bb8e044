package regen

import "time"

// Option configures a Coordinator during creation.
//
// Example:
//
//	c := regen.NewCoordinator(loop,
//	    regen.WithTimeout(30*time.Second),
//	    regen.WithListener(regen.ListenerFuncs{
//	        Completed: func(frame int) { log.Printf("frame %d done", frame) },
//	    }),
//	)
type Option func(*Coordinator)

// WithTimeout sets how long a request may stay outstanding before it is
// cancelled. Non-positive values keep DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock replaces the wall clock used for the request timeout.
func WithClock(clk Clock) Option {
	return func(c *Coordinator) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithHandler installs the completion and cancellation hooks. Types that
// build on a Coordinator (such as the frame saving renderer) pass
// themselves here.
func WithHandler(h Handler) Option {
	return func(c *Coordinator) {
		c.handler = h
	}
}

// WithListener sets the receiver of final notifications.
func WithListener(l Listener) Option {
	return func(c *Coordinator) {
		c.listener = l
	}
}
