// Package render draws the layer stack and result charts into RGBA images.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"seehuhn.de/go/geom/vec"

	"github.com/example/defectmark/internal/viewport"
)

// LayerRect returns the widget rectangle covered by a layer's surface.
func LayerRect(l *viewport.Layer) image.Rectangle {
	tr := l.Transform()
	sz := l.Surface().Size()
	a := tr.ToWidget(vec.Vec2{})
	b := tr.ToWidget(vec.Vec2{X: float64(sz.X), Y: float64(sz.Y)})
	return image.Rect(
		int(math.Floor(a.X)), int(math.Floor(a.Y)),
		int(math.Floor(b.X)), int(math.Floor(b.Y)),
	)
}

// Compose fills view with backdrop and draws layers bottom to top, each with
// its own transform. view is the widget rectangle inside dst.
func Compose(dst *image.RGBA, view image.Rectangle, layers []*viewport.Layer, backdrop color.Color) {
	draw.Draw(dst, view, &image.Uniform{backdrop}, image.Point{}, draw.Src)
	canvas, ok := dst.SubImage(view).(*image.RGBA)
	if !ok {
		return
	}
	for _, l := range layers {
		if l == nil || l.Surface() == nil {
			continue
		}
		r := LayerRect(l).Add(view.Min)
		if r.Empty() || !r.Overlaps(view) {
			continue
		}
		src := l.Surface().Pixels()
		xdraw.NearestNeighbor.Scale(canvas, r, src, src.Bounds(), draw.Over, nil)
	}
}
