package regen

import (
	"image"
	"image/color"
)

// FrameEvents receives the outcome of a regeneration from an Image.
// Either method may be called on any goroutine, including the one that
// called RequestFrameRegeneration.
type FrameEvents interface {
	// FrameReady reports that frame has been rendered into the projection.
	FrameReady(frame int)

	// FrameCancelled reports that the pending regeneration was abandoned.
	FrameCancelled()
}

// Subscription is returned by Image.SubscribeFrames.
// Unsubscribe must be idempotent.
type Subscription interface {
	Unsubscribe()
}

// Image is the animated document a Coordinator regenerates frames of.
type Image interface {
	// Bounds returns the image rectangle in image coordinates.
	Bounds() image.Rectangle

	// ColorModel describes the pixel format of the projection.
	ColorModel() color.Model

	// Projection returns the currently rendered composite. After FrameReady
	// it holds the requested frame until the next regeneration starts.
	Projection() image.Image

	// RequestFrameRegeneration asks the image to render frame within bounds.
	// It must not block on the rendering itself.
	RequestFrameRegeneration(frame int, bounds image.Rectangle)

	// SubscribeFrames registers ev for ready/cancelled events.
	SubscribeFrames(ev FrameEvents) Subscription
}

// subscriptions collects the subscriptions of one request so they can be
// torn down together.
type subscriptions []Subscription

func (s *subscriptions) add(sub Subscription) {
	if sub != nil {
		*s = append(*s, sub)
	}
}

func (s *subscriptions) clear() {
	for _, sub := range *s {
		sub.Unsubscribe()
	}
	*s = nil
}
