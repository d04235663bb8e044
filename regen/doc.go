// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package regen implements the asynchronous "regenerate frame N of image I"
// protocol between a controller goroutine and an image that renders on its
// own workers.
//
// # Execution contexts
//
// A [Coordinator] belongs to one [Loop]. Requests are issued and final
// notifications are delivered on that loop. The image raises FrameReady
// and FrameCancelled from whatever goroutine did the work:
//
//   - FrameReady runs the completion hook directly on the calling goroutine;
//     the hook may do slow work there (export, readback) without stalling the loop.
//   - FrameCancelled and the timeout are marshalled onto the loop.
//
// # Outcomes
//
// Every StartFrameRegeneration ends in exactly one [Listener] call,
// FrameCompleted or FrameCancelled. Timeouts are not distinguishable from
// other cancellations. Events that arrive for a request that has already
// been finalized, or for a different frame, are dropped.
package regen
