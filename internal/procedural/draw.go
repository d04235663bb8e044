package procedural

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

const (
	cycle        = 24
	circleSteps  = 48
	labelSize    = 12
	labelPadding = 4
)

var (
	background = color.NRGBA{R: 0xf2, G: 0xf0, B: 0xeb, A: 0xff}
	labelColor = color.NRGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff}
)

var parseFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

func newLabelFace() (font.Face, error) {
	f, err := parseFont()
	if err != nil {
		return nil, fmt.Errorf("procedural: parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    labelSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("procedural: create face: %w", err)
	}
	return face, nil
}

// scene is the content of one drawing in canvas coordinates.
type scene struct {
	cx, cy, r float64
	fill      color.NRGBA
}

func sceneFor(drawing int, bounds image.Rectangle) scene {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	r := math.Min(w, h) / 6

	phase := float64(drawing%cycle) / cycle
	cx := float64(bounds.Min.X) + r + (w-2*r)*phase
	cy := float64(bounds.Min.Y) + h/2 - (h/2-r)*math.Abs(math.Sin(phase*2*math.Pi))

	hue := float64(drawing%cycle) / cycle
	return scene{cx: cx, cy: cy, r: r, fill: hsv(hue, 0.65, 0.9)}
}

// drawTile paints the part of s inside tile onto dst.
func (s scene) drawTile(dst draw.Image, tile image.Rectangle) {
	draw.Draw(dst, tile, image.NewUniform(background), image.Point{}, draw.Src)

	z := vector.NewRasterizer(tile.Dx(), tile.Dy())
	z.DrawOp = draw.Over
	ox, oy := float64(tile.Min.X), float64(tile.Min.Y)
	for i := range circleSteps {
		a := 2 * math.Pi * float64(i) / circleSteps
		x := float32(s.cx + s.r*math.Cos(a) - ox)
		y := float32(s.cy + s.r*math.Sin(a) - oy)
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
	z.Draw(dst, tile, image.NewUniform(s.fill), image.Point{})
}

// drawLabel writes text at the bottom-left corner of bounds.
func drawLabel(dst draw.Image, face font.Face, bounds image.Rectangle, text string) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.P(bounds.Min.X+labelPadding, bounds.Max.Y-labelPadding),
	}
	d.DrawString(text)
}

func hsv(h, s, v float64) color.NRGBA {
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return color.NRGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 0xff}
}
