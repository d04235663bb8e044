package image

import (
	"errors"
	"image"

	xdraw "golang.org/x/image/draw"
)

// Common errors for image operations.
var (
	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("image: invalid dimensions")

	// ErrInvalidFormat is returned when the format is not recognized.
	ErrInvalidFormat = errors.New("image: invalid format")

	// ErrNoOverlap is returned when a copy region misses the source image.
	ErrNoOverlap = errors.New("image: region does not overlap source")
)

// ImageBuf is a contiguous pixel buffer with its origin at (0, 0).
//
// Thread safety: ImageBuf requires external synchronization for writes.
type ImageBuf struct {
	data   []byte
	width  int
	height int
	stride int
	format Format
}

// NewImageBuf creates a zeroed buffer with the given dimensions and format.
func NewImageBuf(width, height int, format Format) (*ImageBuf, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if !format.IsValid() {
		return nil, ErrInvalidFormat
	}

	stride := format.RowBytes(width)
	return &ImageBuf{
		data:   make([]byte, stride*height),
		width:  width,
		height: height,
		stride: stride,
		format: format,
	}, nil
}

// Width returns the image width in pixels.
func (b *ImageBuf) Width() int {
	return b.width
}

// Height returns the image height in pixels.
func (b *ImageBuf) Height() int {
	return b.height
}

// Stride returns the number of bytes per row.
func (b *ImageBuf) Stride() int {
	return b.stride
}

// Format returns the pixel format.
func (b *ImageBuf) Format() Format {
	return b.format
}

// Rect returns the buffer rectangle, always anchored at (0, 0).
func (b *ImageBuf) Rect() image.Rectangle {
	return image.Rect(0, 0, b.width, b.height)
}

// Data returns the raw pixel data slice.
func (b *ImageBuf) Data() []byte {
	return b.data
}

// RowBytes returns a slice of the pixel data for row y.
// Returns nil if y is out of bounds.
func (b *ImageBuf) RowBytes(y int) []byte {
	if y < 0 || y >= b.height {
		return nil
	}
	start := y * b.stride
	return b.data[start : start+b.format.RowBytes(b.width)]
}

// Clear sets all pixels to zero (transparent black for RGBA formats).
func (b *ImageBuf) Clear() {
	clear(b.data)
}

// Image returns a standard library view sharing the buffer memory.
// Writes through the view change the buffer and vice versa.
func (b *ImageBuf) Image() xdraw.Image {
	rect := b.Rect()
	switch b.format {
	case FormatGray8:
		return &image.Gray{Pix: b.data, Stride: b.stride, Rect: rect}
	case FormatGray16:
		return &image.Gray16{Pix: b.data, Stride: b.stride, Rect: rect}
	case FormatRGBA8:
		return &image.NRGBA{Pix: b.data, Stride: b.stride, Rect: rect}
	case FormatRGBA16:
		return &image.NRGBA64{Pix: b.data, Stride: b.stride, Rect: rect}
	default:
		return &image.RGBA{Pix: b.data, Stride: b.stride, Rect: rect}
	}
}

// CopyFrom replaces the buffer contents with the pixels of src inside r.
// r.Min lands on the buffer origin; buffer pixels not covered by r ∩
// src.Bounds() are cleared. Color conversion follows the buffer format.
func (b *ImageBuf) CopyFrom(src image.Image, r image.Rectangle) error {
	sr := r.Intersect(src.Bounds())
	if sr.Empty() {
		return ErrNoOverlap
	}

	b.Clear()
	dst := b.Image()
	dp := sr.Min.Sub(r.Min)
	xdraw.Copy(dst, dp, src, sr, xdraw.Src, nil)
	return nil
}

// Clone creates a deep copy of the image buffer.
func (b *ImageBuf) Clone() *ImageBuf {
	data := make([]byte, len(b.data))
	copy(data, b.data)
	return &ImageBuf{
		data:   data,
		width:  b.width,
		height: b.height,
		stride: b.stride,
		format: b.format,
	}
}
