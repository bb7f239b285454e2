package appstate

import (
	"image"
	"image/color"
	"image/draw"
	"log"

	"golang.org/x/exp/shiny/screen"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/example/defectmark/internal/render"
)

var messageFace font.Face

func init() {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		log.Fatalf("parse font: %v", err)
	}
	messageFace, err = opentype.NewFace(f, &opentype.FaceOptions{Size: 24, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		log.Fatalf("font face: %v", err)
	}
}

// viewRect is the part of the window showing the layer stack.
func viewRect(width, height int) image.Rectangle {
	return image.Rect(toolbarWidth, statusHeight, width, height-bottomHeight)
}

// drawScene renders one complete frame into dst.
func drawScene(dst *image.RGBA, u *ui, backdrop color.Color, buttons []*CacheButton, hoverTool, hoverShortcut int) {
	width, height := dst.Bounds().Dx(), dst.Bounds().Dy()
	render.Compose(dst, viewRect(width, height), u.ctrl.Stack().Ordered(), backdrop)
	u.ctrl.Stack().Painted()

	drawStatus(dst, width, u.status())
	y := drawToolbar(dst, buttons, hoverTool, height)
	s := u.ctrl.Session()
	drawWidth(dst, y, s.Width(), s.PenColor)
	layoutShortcuts(u.shortcuts, height)
	drawShortcuts(dst, u.shortcuts, hoverShortcut, width, height)

	switch {
	case u.textInputActive:
		prompt := "Length in " + u.ctrl.RulerStyle().Unit + ": " + u.textInput + "|"
		drawBanner(dst, width, height, prompt)
	case u.messageVisible():
		drawBanner(dst, width, height, u.message)
	}
}

func drawBanner(dst *image.RGBA, width, height int, text string) {
	d := &font.Drawer{Dst: dst, Src: image.Black, Face: messageFace}
	wmsg := d.MeasureString(text).Ceil()
	ascent := messageFace.Metrics().Ascent.Ceil()
	descent := messageFace.Metrics().Descent.Ceil()
	px := (width - wmsg) / 2
	py := (height-ascent-descent)/2 + ascent
	rect := image.Rect(px-8, py-ascent-8, px+wmsg+8, py+descent+8)
	draw.Draw(dst, rect, &image.Uniform{color.RGBA{255, 255, 255, 230}}, image.Point{}, draw.Over)
	drawRect(dst, rect, color.Black)
	d.Dot = fixed.P(px, py)
	d.DrawString(text)
}

// drawFrame renders into a fresh buffer and publishes it. It runs on the
// event loop goroutine, which owns every surface.
func drawFrame(s screen.Screen, w screen.Window, width, height int, u *ui, buttons []*CacheButton, hoverTool, hoverShortcut int) {
	b, err := s.NewBuffer(image.Point{width, height})
	if err != nil {
		log.Printf("new buffer: %v", err)
		return
	}
	defer b.Release()
	drawScene(b.RGBA(), u, u.ctrl.Session().Backdrop, buttons, hoverTool, hoverShortcut)
	w.Upload(image.Point{}, b, b.Bounds())
	w.Publish()
}
