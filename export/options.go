package export

import (
	"image/jpeg"
	"image/png"

	"golang.org/x/image/tiff"
)

// Options is the exporter configuration passed with every written file.
// Fields that do not apply to the chosen format are ignored.
type Options struct {
	// JPEGQuality is the JPEG quality from 1 to 100. Zero selects
	// jpeg.DefaultQuality.
	JPEGQuality int

	// PNGCompression selects the zlib level for PNG output.
	PNGCompression png.CompressionLevel

	// TIFFCompression selects the TIFF compression scheme.
	TIFFCompression tiff.CompressionType

	// TIFFPredictor enables the differencing predictor for TIFF output.
	TIFFPredictor bool
}

// DefaultOptions returns lossless-friendly defaults: best-speed PNG,
// deflate-compressed TIFF with predictor and quality 90 JPEG.
func DefaultOptions() Options {
	return Options{
		JPEGQuality:     90,
		PNGCompression:  png.BestSpeed,
		TIFFCompression: tiff.Deflate,
		TIFFPredictor:   true,
	}
}

func (o Options) jpegOptions() *jpeg.Options {
	q := o.JPEGQuality
	switch {
	case q == 0:
		q = jpeg.DefaultQuality
	case q < 1:
		q = 1
	case q > 100:
		q = 100
	}
	return &jpeg.Options{Quality: q}
}

// Config describes one export run of a FramesSavingRenderer.
type Config struct {
	// Prefix and Suffix surround the four-digit ordinal in every file name.
	// Prefix usually carries the directory, Suffix the extension.
	Prefix string
	Suffix string

	// Format is a MIME type ("image/png") or a short alias ("png").
	// When empty it is derived from Suffix.
	Format string

	// Range is the overall export range. Range.Start maps to ordinal
	// SequenceNumberingOffset.
	Range Range

	// SequenceNumberingOffset is added to frame - Range.Start.
	SequenceNumberingOffset int

	// Options configures the encoder.
	Options Options
}
