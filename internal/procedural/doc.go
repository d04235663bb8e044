// Package procedural provides an animated document whose frames are drawn
// on demand. It implements regen.Image and export.FrameHolder and is what
// the animexport command renders.
//
// Every frame shows a ball travelling across the canvas and a label with
// the drawing number. Frames are grouped into holds: consecutive frames of
// one hold show the same drawing, so IdenticalFrames lets the exporter
// write them from a single render.
package procedural
