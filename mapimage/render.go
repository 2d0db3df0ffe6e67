/*
Package mapimage draws resolved catalog items on the static store map.

PURPOSE:
  Server-side counterpart of the widget's pin layer. Items with a single
  resolved point get a pin; range items whose both ends resolved get a
  thick line with a dot at each end; items that cannot be plotted are
  skipped.

COORDINATES:
  Positions are percentages of the map image, so the same catalog works
  for any image size. Points outside 0-100 are clamped to the border.

SEE ALSO:
  - catalog/resolver.go: ResolvedPosition
  - api/handlers.go: GET /api/map.png
*/
package mapimage

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/disintegration/imaging"

	"github.com/warp/storemap/catalog"
)

const (
	pinRadius  = 9
	ringWidth  = 3
	lineWidth  = 10
	defaultW   = 1200
	defaultH   = 800
	maxOutputW = 4096
)

var (
	pinColor  = color.NRGBA{R: 0xFF, G: 0x2D, B: 0x55, A: 0xFF}
	ringColor = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	lineColor = color.NRGBA{R: 0xFF, G: 0x2D, B: 0x55, A: 0x55}
)

// Renderer draws markers over a base map image.
type Renderer struct {
	base image.Image
	pin  *image.NRGBA
}

// Open loads the base map from path.
func Open(path string) (*Renderer, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open map image: %w", err)
	}
	return New(img), nil
}

// Blank returns a renderer over a plain light-grey canvas, used when no map
// image is configured.
func Blank(w, h int) *Renderer {
	if w <= 0 || h <= 0 {
		w, h = defaultW, defaultH
	}
	return New(imaging.New(w, h, color.NRGBA{R: 0xF4, G: 0xF4, B: 0xF4, A: 0xFF}))
}

// New returns a renderer over img.
func New(img image.Image) *Renderer {
	return &Renderer{base: img, pin: pinSprite()}
}

// Size returns the base image dimensions.
func (r *Renderer) Size() (int, int) {
	b := r.base.Bounds()
	return b.Dx(), b.Dy()
}

// Render draws items on a copy of the base map. width > 0 resizes the
// result, keeping the aspect ratio.
func (r *Renderer) Render(items []catalog.DisplayItem, width int) *image.NRGBA {
	dst := imaging.Clone(r.base)
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()

	for _, it := range items {
		pos := it.Position
		if !pos.Plottable() {
			continue
		}
		a := toPixels(*pos.Point, w, h)
		if pos.IsLine() {
			b := toPixels(*pos.End, w, h)
			drawLine(dst, a, b, lineWidth, lineColor)
			dst = r.stamp(dst, a)
			dst = r.stamp(dst, b)
			continue
		}
		dst = r.stamp(dst, a)
	}

	if width > 0 && width != w {
		if width > maxOutputW {
			width = maxOutputW
		}
		dst = imaging.Resize(dst, width, 0, imaging.Lanczos)
	}
	return dst
}

// Encode writes img as PNG.
func Encode(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}

func (r *Renderer) stamp(dst *image.NRGBA, center image.Point) *image.NRGBA {
	size := r.pin.Bounds().Dx()
	at := image.Pt(center.X-size/2, center.Y-size/2)
	return imaging.Overlay(dst, r.pin, at, 1.0)
}

// =============================================================================
// PRIMITIVES
// =============================================================================

func toPixels(p catalog.Point, w, h int) image.Point {
	x := clamp(p.X, 0, 100) / 100 * float64(w-1)
	y := clamp(p.Y, 0, 100) / 100 * float64(h-1)
	return image.Pt(int(math.Round(x)), int(math.Round(y)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// pinSprite is a filled disc with a white ring.
func pinSprite() *image.NRGBA {
	outer := pinRadius + ringWidth
	size := outer*2 + 1
	img := imaging.New(size, size, color.NRGBA{})
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d := math.Hypot(float64(x-outer), float64(y-outer))
			switch {
			case d <= float64(pinRadius):
				img.SetNRGBA(x, y, pinColor)
			case d <= float64(outer):
				img.SetNRGBA(x, y, ringColor)
			}
		}
	}
	return img
}

// drawLine blends a segment of the given thickness into dst.
func drawLine(dst *image.NRGBA, a, b image.Point, width int, c color.NRGBA) {
	half := float64(width) / 2
	minX := int(math.Min(float64(a.X), float64(b.X)) - half)
	maxX := int(math.Max(float64(a.X), float64(b.X)) + half)
	minY := int(math.Min(float64(a.Y), float64(b.Y)) - half)
	maxY := int(math.Max(float64(a.Y), float64(b.Y)) + half)

	bounds := dst.Bounds()
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if !image.Pt(x, y).In(bounds) {
				continue
			}
			if distToSegment(x, y, a, b) <= half {
				blend(dst, x, y, c)
			}
		}
	}
}

func distToSegment(px, py int, a, b image.Point) float64 {
	ax, ay := float64(a.X), float64(a.Y)
	bx, by := float64(b.X), float64(b.Y)
	x, y := float64(px), float64(py)
	dx, dy := bx-ax, by-ay
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(x-ax, y-ay)
	}
	t := clamp(((x-ax)*dx+(y-ay)*dy)/l2, 0, 1)
	return math.Hypot(x-(ax+t*dx), y-(ay+t*dy))
}

func blend(dst *image.NRGBA, x, y int, c color.NRGBA) {
	bg := dst.NRGBAAt(x, y)
	a := float64(c.A) / 255
	mix := func(f, b uint8) uint8 {
		return uint8(math.Round(float64(f)*a + float64(b)*(1-a)))
	}
	dst.SetNRGBA(x, y, color.NRGBA{
		R: mix(c.R, bg.R),
		G: mix(c.G, bg.G),
		B: mix(c.B, bg.B),
		A: uint8(math.Max(float64(bg.A), float64(c.A))),
	})
}
