package export

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// =============================================================================
// Range
// =============================================================================

func TestRange(t *testing.T) {
	tests := []struct {
		name     string
		r        Range
		valid    bool
		duration int
	}{
		{"single", NewRange(3, 3), true, 1},
		{"span", NewRange(0, 23), true, 24},
		{"RangeOf", RangeOf(5, 10), true, 10},
		{"reversed", NewRange(4, 2), false, 0},
		{"negative start", NewRange(-1, 4), false, 6},
		{"zero duration", RangeOf(7, 0), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
			if got := tt.r.Duration(); got != tt.duration {
				t.Errorf("Duration() = %d, want %d", got, tt.duration)
			}
			if got := len(tt.r.Frames()); got != tt.duration {
				t.Errorf("len(Frames()) = %d, want %d", got, tt.duration)
			}
		})
	}
}

func TestRangeContains(t *testing.T) {
	r := NewRange(5, 9)
	for f, want := range map[int]bool{4: false, 5: true, 7: true, 9: true, 10: false} {
		if got := r.Contains(f); got != want {
			t.Errorf("Contains(%d) = %v, want %v", f, got, want)
		}
	}
	if got := r.String(); got != "[5, 9]" {
		t.Errorf("String() = %q", got)
	}
}

// =============================================================================
// Filenames
// =============================================================================

func TestOrdinalAndFilename(t *testing.T) {
	tests := []struct {
		name   string
		frame  int
		rng    Range
		offset int
		want   string
	}{
		{"offset sequence", 7, NewRange(5, 20), 100, "out_0102.png"},
		{"range start", 5, NewRange(5, 20), 0, "out_0000.png"},
		{"plain", 42, NewRange(0, 99), 0, "out_0042.png"},
		{"wide ordinal", 12345, NewRange(0, 20000), 0, "out_12345.png"},
		{"frame before start", 3, NewRange(5, 20), 0, "out_-002.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filename("out_", Ordinal(tt.frame, tt.rng, tt.offset), ".png")
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	decomposed := "cafe\u0301_"
	if got, want := normalizeName(decomposed), "caf\u00e9_"; got != want {
		t.Errorf("normalizeName(%q) = %q, want %q", decomposed, got, want)
	}
}

// =============================================================================
// Formats
// =============================================================================

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"image/png", FormatPNG},
		{"IMAGE/PNG", FormatPNG},
		{"png", FormatPNG},
		{"jpg", FormatJPEG},
		{"jpeg", FormatJPEG},
		{".bmp", FormatBMP},
		{"tif", FormatTIFF},
		{" tiff ", FormatTIFF},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeFormat(tt.in)
			if err != nil {
				t.Fatalf("NormalizeFormat: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "gif", "image/webp"} {
		if _, err := NormalizeFormat(bad); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("NormalizeFormat(%q) error = %v, want ErrUnsupportedFormat", bad, err)
		}
	}
}

func TestFormatForPath(t *testing.T) {
	if got, err := FormatForPath("frames/walk_0001.TIFF"); err != nil || got != FormatTIFF {
		t.Errorf("FormatForPath = %q, %v", got, err)
	}
	if _, err := FormatForPath("frames/walk_0001"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("no extension: error = %v", err)
	}
}

func TestFormats(t *testing.T) {
	got := strings.Join(Formats(), ",")
	if want := "image/bmp,image/jpeg,image/png,image/tiff"; got != want {
		t.Errorf("Formats() = %s, want %s", got, want)
	}
}

// =============================================================================
// FileExporter
// =============================================================================

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 40), B: 200, A: 255})
		}
	}
	return img
}

func TestFileExporterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := testImage()

	for _, format := range Formats() {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(dir, "frame_"+strings.TrimPrefix(format, "image/"))
			if err := (FileExporter{}).Export(path, format, src, DefaultOptions()); err != nil {
				t.Fatalf("Export: %v", err)
			}

			f, err := os.Open(path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer f.Close()

			got, name, err := image.Decode(f)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if "image/"+name != format {
				t.Errorf("decoded as %q", name)
			}
			if got.Bounds() != src.Bounds() {
				t.Errorf("bounds = %v, want %v", got.Bounds(), src.Bounds())
			}
		})
	}
}

func TestFileExporterLossless(t *testing.T) {
	dir := t.TempDir()
	src := testImage()
	path := filepath.Join(dir, "lossless.png")

	opts := Options{PNGCompression: png.BestCompression, TIFFCompression: tiff.Uncompressed}
	if err := (FileExporter{}).Export(path, "png", src, opts); err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			if color.NRGBAModel.Convert(got.At(x, y)) != src.At(x, y) {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got.At(x, y), src.At(x, y))
			}
		}
	}
}

func TestFileExporterErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("unsupported format", func(t *testing.T) {
		err := (FileExporter{}).Export(filepath.Join(dir, "a.gif"), "gif", testImage(), Options{})
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("error = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		err := (FileExporter{}).Export(filepath.Join(dir, "missing", "a.png"), FormatPNG, testImage(), Options{})
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("encode failure removes file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.png")
		err := (FileExporter{}).Export(path, FormatPNG, image.NewNRGBA(image.Rectangle{}), Options{})
		if err == nil {
			t.Fatal("expected error for empty image")
		}
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Errorf("partial file left behind: %v", statErr)
		}
	})
}

func TestJPEGQualityClamp(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 75}, {-5, 1}, {50, 50}, {150, 100},
	}
	for _, tt := range tests {
		if got := (Options{JPEGQuality: tt.in}).jpegOptions().Quality; got != tt.want {
			t.Errorf("quality %d -> %d, want %d", tt.in, got, tt.want)
		}
	}
}
