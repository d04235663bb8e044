// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package export writes regenerated animation frames to numbered files.
//
// A [FramesSavingRenderer] is a [regen.Coordinator] whose completion hook
// copies the image projection into a private buffer and writes it to
//
//	Prefix + NNNN + Suffix
//
// where NNNN is the zero-padded ordinal frame - Range.Start +
// SequenceNumberingOffset. A failed write turns the whole frame into a
// cancellation.
//
// Example:
//
//	r, err := export.NewFramesSavingRenderer(loop, img, export.Config{
//	    Prefix: "out/walk_",
//	    Suffix: ".png",
//	    Format: "image/png",
//	    Range:  export.NewRange(0, 23),
//	}, nil, regen.WithListener(listener))
package export
