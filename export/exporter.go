package export

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Export errors.
var (
	// ErrUnsupportedFormat is returned for unknown format identifiers.
	ErrUnsupportedFormat = errors.New("export: unsupported format")

	// ErrInvalidRange is returned when a Config range is empty or negative.
	ErrInvalidRange = errors.New("export: invalid frame range")

	// ErrEmptyImage is returned for images with empty bounds.
	ErrEmptyImage = errors.New("export: image has empty bounds")
)

// Format identifiers accepted by FileExporter.
const (
	FormatPNG  = "image/png"
	FormatJPEG = "image/jpeg"
	FormatBMP  = "image/bmp"
	FormatTIFF = "image/tiff"
)

// Exporter writes one image to path synchronously.
type Exporter interface {
	Export(path, format string, img image.Image, opts Options) error
}

type encodeFunc func(w io.Writer, img image.Image, opts Options) error

var encoders = map[string]encodeFunc{
	FormatPNG: func(w io.Writer, img image.Image, opts Options) error {
		enc := png.Encoder{CompressionLevel: opts.PNGCompression}
		return enc.Encode(w, img)
	},
	FormatJPEG: func(w io.Writer, img image.Image, opts Options) error {
		return jpeg.Encode(w, img, opts.jpegOptions())
	},
	FormatBMP: func(w io.Writer, img image.Image, _ Options) error {
		return bmp.Encode(w, img)
	},
	FormatTIFF: func(w io.Writer, img image.Image, opts Options) error {
		return tiff.Encode(w, img, &tiff.Options{
			Compression: opts.TIFFCompression,
			Predictor:   opts.TIFFPredictor,
		})
	},
}

var aliases = map[string]string{
	"png":  FormatPNG,
	"jpg":  FormatJPEG,
	"jpeg": FormatJPEG,
	"bmp":  FormatBMP,
	"tif":  FormatTIFF,
	"tiff": FormatTIFF,
}

// NormalizeFormat maps a MIME type or alias to the MIME type FileExporter
// uses.
func NormalizeFormat(id string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(id))
	if _, ok := encoders[key]; ok {
		return key, nil
	}
	if mime, ok := aliases[strings.TrimPrefix(key, ".")]; ok {
		return mime, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, id)
}

// FormatForPath derives the format from the extension of path.
func FormatForPath(path string) (string, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("%w: no extension in %q", ErrUnsupportedFormat, path)
	}
	return NormalizeFormat(ext)
}

// Formats lists the supported MIME types in sorted order.
func Formats() []string {
	out := make([]string, 0, len(encoders))
	for k := range encoders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FileExporter encodes images with the standard library and
// golang.org/x/image codecs and writes them to the local file system.
type FileExporter struct{}

// Export implements Exporter. A file left behind by a failed encode is
// removed.
func (FileExporter) Export(path, format string, img image.Image, opts Options) error {
	mime, err := NormalizeFormat(format)
	if err != nil {
		return err
	}
	encode := encoders[mime]

	path = filepath.Clean(path)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create file: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := encode(w, img, opts); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("export: encode %s: %w", mime, err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("export: close %s: %w", path, err)
	}
	return nil
}
