// Package batch renders a list of frames across several
// FramesSavingRenderers that share one regen.Loop.
//
// Each renderer is paired with its own image. The Driver hands the next
// frame to every idle renderer, skips frames already written as part of
// an identical span and stops every renderer on the first cancellation.
package batch
