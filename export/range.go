package export

import "fmt"

// Range is an inclusive span of frame indices.
type Range struct {
	Start int
	End   int
}

// NewRange returns the inclusive range [start, end].
func NewRange(start, end int) Range {
	return Range{Start: start, End: end}
}

// RangeOf returns the range of duration frames beginning at start.
func RangeOf(start, duration int) Range {
	return Range{Start: start, End: start + duration - 1}
}

// IsValid reports whether the range starts at a non-negative frame and
// holds at least one frame.
func (r Range) IsValid() bool {
	return r.Start >= 0 && r.End >= r.Start
}

// Duration returns the number of frames in the range.
func (r Range) Duration() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether frame lies inside the range.
func (r Range) Contains(frame int) bool {
	return frame >= r.Start && frame <= r.End
}

// Frames lists the frames of the range in ascending order.
func (r Range) Frames() []int {
	out := make([]int, 0, r.Duration())
	for f := r.Start; f <= r.End; f++ {
		out = append(out, f)
	}
	return out
}

// String returns "[start, end]".
func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}
