// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package updates

import (
	"image"
	"sync"
)

// Info describes one dirty region of the image.
type Info struct {
	// LevelOfDetail is the sub-sampling tier the region was rendered at.
	// Regions at different levels never coalesce.
	LevelOfDetail int

	// Rect is the invalidated area in image coordinates.
	Rect image.Rectangle

	// Payload is opaque producer data handed through to the consumer.
	Payload any
}

// supersedes reports whether i makes old redundant: same level of detail
// and old's rectangle lies entirely inside i's.
func (i Info) supersedes(old Info) bool {
	return i.LevelOfDetail == old.LevelOfDetail && old.Rect.In(i.Rect)
}

// Compressor is an order-preserving queue of dirty regions that drops
// entries made obsolete by a later, containing region.
//
// Put may be called concurrently from any number of goroutines; Take is
// meant for a single consumer. Both hold the same mutex for the list
// mutation only.
type Compressor struct {
	mu      sync.Mutex
	entries []Info
}

// NewCompressor creates an empty Compressor.
func NewCompressor() *Compressor {
	return &Compressor{}
}

// Put queues info. Empty rectangles are ignored and report false.
//
// Every queued entry at the same level of detail whose rectangle is
// contained in info.Rect is removed before info is appended at the tail.
// The superseded entry must not stay in front of the new one, otherwise
// the consumer would repaint in an order that no longer matches
// compositing recency.
//
// Put returns true if the queue was empty once the superseded entries
// were removed, i.e. when the consumer has to be woken. Replacing the only
// queued entry therefore also reports true.
func (c *Compressor) Put(info Info) bool {
	if info.Rect.Empty() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.entries[:0]
	for _, e := range c.entries {
		if !info.supersedes(e) {
			kept = append(kept, e)
		}
	}
	// Drop references held by the tail so payloads can be collected.
	clear(c.entries[len(kept):])
	c.entries = append(kept, info)

	return len(c.entries) == 1
}

// Take removes and returns the oldest entry.
// The second result is false if the queue is empty.
func (c *Compressor) Take() (Info, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) == 0 {
		return Info{}, false
	}

	info := c.entries[0]
	c.entries[0] = Info{}
	c.entries = c.entries[1:]
	if len(c.entries) == 0 {
		c.entries = nil
	}
	return info, true
}

// Len returns the number of queued entries.
func (c *Compressor) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
