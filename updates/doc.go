// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package updates coalesces dirty-region notifications produced by render
// workers into an ordered queue drained by a single consumer.
//
// Producers call [Compressor.Put] from any goroutine. A Put whose region
// contains an older region at the same level of detail removes the older
// entry, so the consumer never repaints stale partial data after a newer,
// larger update. Regions at different levels of detail are independent.
//
// [Consumer] wires a Compressor to a goroutine that is woken only when the
// queue goes from empty to non-empty:
//
//	c := updates.NewCompressor()
//	cons := updates.NewConsumer(c, func(info updates.Info) {
//	    canvas.Repaint(info.LevelOfDetail, info.Rect)
//	}, updates.WithRateLimit(60, 1))
//	go cons.Run(ctx)
//
//	// on any render worker:
//	cons.Schedule(updates.Info{Rect: dirty})
package updates
