// Package raster holds the pixel buffers owned by each viewport layer.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"seehuhn.de/go/geom/vec"
)

// AspectPolicy controls how ResizeTo treats the source aspect ratio.
type AspectPolicy int

const (
	// Preserve fits the content inside the target size without distortion.
	Preserve AspectPolicy = iota
	// Stretch scales the content to exactly the target size.
	Stretch
)

// Compositing selects how a stroke combines with the destination.
type Compositing int

const (
	// Source replaces destination pixels with the stroke colour.
	Source Compositing = iota
	// Clear sets destination pixels to fully transparent.
	Clear
)

// Transparent is the zero colour written by Clear.
var Transparent = color.NRGBA{}

// Surface is a non-premultiplied RGBA pixel buffer.
type Surface struct {
	img *image.NRGBA
}

// New returns a surface of the given size filled with backdrop.
func New(size image.Point, backdrop color.NRGBA) *Surface {
	s := &Surface{img: image.NewNRGBA(image.Rectangle{Max: size})}
	s.Fill(backdrop)
	return s
}

// FromImage copies img into a new surface whose bounds start at the origin.
func FromImage(img image.Image) *Surface {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Surface{img: dst}
}

// Size returns the surface dimensions.
func (s *Surface) Size() image.Point {
	return s.img.Bounds().Size()
}

// Bounds returns the surface rectangle.
func (s *Surface) Bounds() image.Rectangle {
	return s.img.Bounds()
}

// Image returns a copy of the pixels.
func (s *Surface) Image() *image.NRGBA {
	out := image.NewNRGBA(s.img.Bounds())
	copy(out.Pix, s.img.Pix)
	return out
}

// Pixels exposes the backing buffer for read-only rendering.
func (s *Surface) Pixels() *image.NRGBA {
	return s.img
}

// At returns the pixel at x, y.
func (s *Surface) At(x, y int) color.NRGBA {
	return s.img.NRGBAAt(x, y)
}

// Fill sets every pixel to c.
func (s *Surface) Fill(c color.NRGBA) {
	draw.Draw(s.img, s.img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
}

// ResizeTo returns a new surface holding this surface scaled to size with
// nearest-neighbour sampling. With Preserve the result is the largest size
// that fits inside size while keeping the aspect ratio.
func (s *Surface) ResizeTo(size image.Point, policy AspectPolicy) *Surface {
	if policy == Preserve {
		size = FitSize(s.Size(), size)
	}
	dst := image.NewNRGBA(image.Rectangle{Max: size})
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), s.img, s.img.Bounds(), draw.Src, nil)
	return &Surface{img: dst}
}

// FitSize scales src to fit within bound keeping its aspect ratio.
func FitSize(src, bound image.Point) image.Point {
	if src.X <= 0 || src.Y <= 0 {
		return bound
	}
	zx := float64(bound.X) / float64(src.X)
	zy := float64(bound.Y) / float64(src.Y)
	z := math.Min(zx, zy)
	w := int(math.Round(float64(src.X) * z))
	h := int(math.Round(float64(src.Y) * z))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.Pt(w, h)
}

// DrawPoint stamps a width x width square centred on p.
func (s *Surface) DrawPoint(p vec.Vec2, width int, c color.NRGBA) {
	x, y := pixel(p)
	s.stamp(x, y, width, c)
}

// DrawLine draws a segment from p0 to p1 with a square brush of the given
// width. Source writes c; Clear writes Transparent.
func (s *Surface) DrawLine(p0, p1 vec.Vec2, width int, c color.NRGBA, mode Compositing) {
	if mode == Clear {
		c = Transparent
	}
	x0, y0 := pixel(p0)
	x1, y1 := pixel(p1)
	reach := image.Rect(min(x0, x1), min(y0, y1), max(x0, x1)+1, max(y0, y1)+1).Inset(-width)
	if !reach.Overlaps(s.img.Bounds()) {
		return
	}
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		s.stamp(x0, y0, width, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (s *Surface) stamp(x, y, width int, c color.NRGBA) {
	if width < 1 {
		width = 1
	}
	lo := (width - 1) / 2
	r := image.Rect(x-lo, y-lo, x-lo+width, y-lo+width).Intersect(s.img.Bounds())
	for py := r.Min.Y; py < r.Max.Y; py++ {
		for px := r.Min.X; px < r.Max.X; px++ {
			s.img.SetNRGBA(px, py, c)
		}
	}
}

func pixel(p vec.Vec2) (int, int) {
	return int(math.Floor(p.X)), int(math.Floor(p.Y))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
