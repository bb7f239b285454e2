package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"seehuhn.de/go/geom/vec"

	"github.com/example/defectmark/internal/raster"
	"github.com/example/defectmark/internal/training"
)

// Loss plot colours: training in red, validation in green.
var (
	TrainColor = color.NRGBA{R: 0xd0, A: 0xff}
	ValColor   = color.NRGBA{G: 0xa0, A: 0xff}
	axisColor  = color.NRGBA{A: 0xff}
)

const plotMargin = 40

// LossPlot draws training and validation loss against the epoch number.
func LossPlot(epochs []training.Epoch, size image.Point) *image.NRGBA {
	s := raster.New(size, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	img := s.Pixels()
	area := image.Rect(plotMargin, plotMargin/2, size.X-plotMargin/2, size.Y-plotMargin)
	if area.Empty() {
		return s.Image()
	}

	origin := vec.Vec2{X: float64(area.Min.X), Y: float64(area.Max.Y)}
	s.DrawLine(origin, vec.Vec2{X: float64(area.Max.X), Y: float64(area.Max.Y)}, 1, axisColor, raster.Source)
	s.DrawLine(origin, vec.Vec2{X: float64(area.Min.X), Y: float64(area.Min.Y)}, 1, axisColor, raster.Source)
	label(img, area.Min.X+area.Dx()/2-20, size.Y-8, "epochs")
	label(img, 2, area.Min.Y+10, "Loss")

	if len(epochs) == 0 {
		return s.Image()
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, e := range epochs {
		lo = math.Min(lo, math.Min(e.Train, e.Val))
		hi = math.Max(hi, math.Max(e.Train, e.Val))
	}
	if hi == lo {
		hi = lo + 1
	}
	first, last := epochs[0].Epoch, epochs[len(epochs)-1].Epoch
	span := float64(last - first)
	if span == 0 {
		span = 1
	}
	at := func(epoch int, v float64) vec.Vec2 {
		return vec.Vec2{
			X: float64(area.Min.X) + float64(epoch-first)/span*float64(area.Dx()-1),
			Y: float64(area.Max.Y) - (v-lo)/(hi-lo)*float64(area.Dy()-1),
		}
	}
	for i := range epochs {
		e := epochs[i]
		if i == 0 {
			s.DrawPoint(at(e.Epoch, e.Train), 3, TrainColor)
			s.DrawPoint(at(e.Epoch, e.Val), 3, ValColor)
			continue
		}
		p := epochs[i-1]
		s.DrawLine(at(p.Epoch, p.Train), at(e.Epoch, e.Train), 2, TrainColor, raster.Source)
		s.DrawLine(at(p.Epoch, p.Val), at(e.Epoch, e.Val), 2, ValColor, raster.Source)
	}

	label(img, 2, area.Max.Y, fmt.Sprintf("%.2f", lo))
	label(img, 2, area.Min.Y+24, fmt.Sprintf("%.2f", hi))
	legend(img, area.Max.X-60, area.Min.Y+12, "Train", TrainColor)
	legend(img, area.Max.X-60, area.Min.Y+26, "Valid", ValColor)
	return s.Image()
}

func label(dst *image.NRGBA, x, y int, text string) {
	d := &font.Drawer{Dst: dst, Src: image.Black, Face: basicfont.Face7x13, Dot: fixed.P(x, y)}
	d.DrawString(text)
}

func legend(dst *image.NRGBA, x, y int, text string, c color.NRGBA) {
	r := image.Rect(x, y-8, x+10, y)
	for py := r.Min.Y; py < r.Max.Y; py++ {
		for px := r.Min.X; px < r.Max.X; px++ {
			dst.SetNRGBA(px, py, c)
		}
	}
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: basicfont.Face7x13, Dot: fixed.P(x+14, y)}
	d.DrawString(text)
}
