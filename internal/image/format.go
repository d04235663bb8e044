// Package image provides the isolated pixel buffer frames are copied into
// before they are written to disk.
package image

import (
	"image/color"
)

// Format represents a pixel storage format.
type Format uint8

const (
	// FormatGray8 is 8-bit grayscale (1 byte per pixel).
	FormatGray8 Format = iota

	// FormatGray16 is 16-bit big-endian grayscale (2 bytes per pixel).
	FormatGray16

	// FormatRGBA8 is 32-bit straight-alpha RGBA (4 bytes per pixel).
	FormatRGBA8

	// FormatRGBAPremul is 32-bit RGBA with premultiplied alpha (4 bytes per pixel).
	FormatRGBAPremul

	// FormatRGBA16 is 64-bit straight-alpha big-endian RGBA (8 bytes per pixel).
	FormatRGBA16

	// formatCount is the number of formats (for internal use).
	formatCount
)

// FormatInfo contains metadata about a pixel format.
type FormatInfo struct {
	// BytesPerPixel is the number of bytes per pixel.
	BytesPerPixel int

	// HasAlpha indicates if the format has an alpha channel.
	HasAlpha bool

	// IsPremultiplied indicates if alpha is premultiplied.
	IsPremultiplied bool

	// IsGrayscale indicates if this is a grayscale format.
	IsGrayscale bool

	// BitsPerChannel is the number of bits per color channel.
	BitsPerChannel int
}

var formatInfoTable = [formatCount]FormatInfo{
	FormatGray8:      {BytesPerPixel: 1, IsGrayscale: true, BitsPerChannel: 8},
	FormatGray16:     {BytesPerPixel: 2, IsGrayscale: true, BitsPerChannel: 16},
	FormatRGBA8:      {BytesPerPixel: 4, HasAlpha: true, BitsPerChannel: 8},
	FormatRGBAPremul: {BytesPerPixel: 4, HasAlpha: true, IsPremultiplied: true, BitsPerChannel: 8},
	FormatRGBA16:     {BytesPerPixel: 8, HasAlpha: true, BitsPerChannel: 16},
}

// Info returns the FormatInfo for this format.
func (f Format) Info() FormatInfo {
	if f >= formatCount {
		return FormatInfo{}
	}
	return formatInfoTable[f]
}

// BytesPerPixel returns the number of bytes per pixel for this format.
func (f Format) BytesPerPixel() int {
	return f.Info().BytesPerPixel
}

// HasAlpha returns true if this format has an alpha channel.
func (f Format) HasAlpha() bool {
	return f.Info().HasAlpha
}

// IsValid returns true if the format is a valid known format.
func (f Format) IsValid() bool {
	return f < formatCount
}

// RowBytes calculates the number of bytes needed for a row of the given width.
func (f Format) RowBytes(width int) int {
	return width * f.BytesPerPixel()
}

// String returns a string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatGray8:
		return "Gray8"
	case FormatGray16:
		return "Gray16"
	case FormatRGBA8:
		return "RGBA8"
	case FormatRGBAPremul:
		return "RGBAPremul"
	case FormatRGBA16:
		return "RGBA16"
	default:
		return "Unknown"
	}
}

// FormatForModel picks the storage format that holds pixels of model
// without loss. Unknown models fall back to FormatRGBAPremul, the format
// of *image.RGBA.
func FormatForModel(m color.Model) Format {
	switch m {
	case color.GrayModel:
		return FormatGray8
	case color.Gray16Model:
		return FormatGray16
	case color.NRGBAModel:
		return FormatRGBA8
	case color.NRGBA64Model, color.RGBA64Model:
		return FormatRGBA16
	default:
		return FormatRGBAPremul
	}
}
