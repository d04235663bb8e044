// Package animexport coordinates asynchronous regeneration of animation
// frames and exports the results as numbered image files.
//
// # Overview
//
// An animation document renders its frames on worker goroutines. The
// controller that drives an export lives on a single owning goroutine
// (a [regen.Loop]) and must never block on a worker. The packages split
// that problem up as follows:
//
//   - regen: the request/response/timeout state machine for
//     "regenerate frame N of image I" ([regen.Coordinator])
//   - export: a coordinator that writes every completed frame to
//     prefix + NNNN + suffix ([export.FramesSavingRenderer])
//   - batch: drives several renderers over a frame range
//   - updates: coalesces dirty-region notifications from render workers
//     into an ordered queue for one consumer ([updates.Compressor])
//
// # Notifications
//
// Every call to StartFrameRegeneration ends in exactly one of two
// notifications, FrameCompleted or FrameCancelled, delivered on the
// owning loop. Timeouts, explicit cancels, cancellations raised by the
// image and failed exports all surface as FrameCancelled. Late or
// duplicate events from the image are dropped.
//
// # Logging
//
// Nothing is logged by default. See [SetLogger].
package animexport
