package render

import (
	"image"
	"image/color"
	"testing"

	"seehuhn.de/go/geom/vec"

	"github.com/example/defectmark/internal/viewport"
)

func TestComposeStacksLayers(t *testing.T) {
	c := viewport.New(viewport.WithSize(image.Pt(40, 20)))
	src := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	c.LoadImage(src, "a.png")
	c.Annotate()
	c.HandlePointer(viewport.PointerEvent{Kind: viewport.Press, Button: viewport.Primary, Pos: vec.Vec2{X: 10, Y: 10}})
	c.HandlePointer(viewport.PointerEvent{Kind: viewport.Release, Button: viewport.Primary})

	dst := image.NewRGBA(image.Rect(0, 0, 60, 30))
	view := image.Rect(10, 5, 50, 25)
	backdrop := color.RGBA{R: 48, G: 76, B: 98, A: 255}
	Compose(dst, view, c.Stack().Ordered(), backdrop)

	if got := dst.RGBAAt(0, 0); got != (color.RGBA{}) {
		t.Fatalf("drew outside the view: %+v", got)
	}
	if got := dst.RGBAAt(10+30, 5+2); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Fatalf("display layer missing: %+v", got)
	}
}

func TestComposeFollowsTransform(t *testing.T) {
	c := viewport.New(viewport.WithSize(image.Pt(40, 40)))
	src := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	c.LoadImage(src, "a.png")
	c.HandlePointer(viewport.PointerEvent{Kind: viewport.Wheel, Ticks: -8})

	l := c.Layer(viewport.DisplayLayer)
	r := LayerRect(l)
	if r.Dx() >= 40 {
		t.Fatalf("zoomed-out layer still covers %v", r)
	}
	if got := LayerRect(c.Layer(viewport.AnnotationLayer)); got != r {
		t.Fatalf("annotation layer drawn at %v, display at %v", got, r)
	}

	dst := image.NewRGBA(image.Rect(0, 0, 40, 40))
	Compose(dst, dst.Bounds(), c.Stack().Ordered(), color.Black)
	if got := dst.RGBAAt(1, 1); got != (color.RGBA{A: 255}) {
		t.Fatalf("corner should show backdrop, got %+v", got)
	}
	if got := dst.RGBAAt(20, 20); got.R != 255 {
		t.Fatalf("centre should show image, got %+v", got)
	}
}
