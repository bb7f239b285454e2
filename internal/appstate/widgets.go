package appstate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/mobile/event/key"
)

const (
	statusHeight = 24
	bottomHeight = 24
)

var toolbarWidth = 48

var (
	barColor     = color.RGBA{220, 220, 220, 255}
	buttonColor  = color.RGBA{200, 200, 200, 255}
	hoverColor   = color.RGBA{180, 180, 180, 255}
	pressedColor = color.RGBA{150, 150, 150, 255}
)

// KeyShortcut describes a keyboard combination that triggers an action.
type KeyShortcut struct {
	Rune      rune
	Code      key.Code
	Modifiers key.Modifiers
}

// KeyboardShortcuts returns the shortcuts associated with an action.
type KeyboardShortcuts interface {
	KeyboardShortcuts() []KeyShortcut
}

type shortcutList []KeyShortcut

func (s shortcutList) KeyboardShortcuts() []KeyShortcut { return []KeyShortcut(s) }

// ButtonState describes the visual state of a button.
type ButtonState int

const (
	StateDefault ButtonState = iota
	StateHover
	StatePressed
)

// Button represents an interactive UI element.
// Activate performs the button's action when clicked.
type Button interface {
	Draw(dst *image.RGBA, state ButtonState)
	Rect() image.Rectangle
	SetRect(r image.Rectangle)
	Activate()
}

// CacheButton wraps another Button and caches its rendered states.
type CacheButton struct {
	Button
	cache [3]*image.RGBA
}

var _ Button = (*CacheButton)(nil)

func (cb *CacheButton) Draw(dst *image.RGBA, state ButtonState) {
	if cb.cache[state] == nil {
		rect := cb.Button.Rect()
		img := image.NewRGBA(rect)
		cb.Button.Draw(img, state)
		cb.cache[state] = img
	}
	draw.Draw(dst, cb.Button.Rect(), cb.cache[state], cb.Button.Rect().Min, draw.Src)
}

func (cb *CacheButton) SetRect(r image.Rectangle) {
	if r != cb.Button.Rect() {
		cb.Button.SetRect(r)
		cb.cache = [3]*image.RGBA{}
	}
}

func stateColor(state ButtonState) color.RGBA {
	switch state {
	case StateHover:
		return hoverColor
	case StatePressed:
		return pressedColor
	}
	return buttonColor
}

// Shortcut is a clickable label in the bottom bar.
type Shortcut struct {
	label  string
	action func()
	rect   image.Rectangle
}

func (s *Shortcut) Draw(dst *image.RGBA, state ButtonState) {
	draw.Draw(dst, s.rect, &image.Uniform{stateColor(state)}, image.Point{}, draw.Src)
	drawRect(dst, s.rect, color.Black)
	d := &font.Drawer{Dst: dst, Src: image.Black, Face: basicfont.Face7x13,
		Dot: fixed.P(s.rect.Min.X+2, s.rect.Min.Y+14)}
	d.DrawString(s.label)
}

func (s *Shortcut) Rect() image.Rectangle { return s.rect }

func (s *Shortcut) SetRect(r image.Rectangle) { s.rect = r }

func (s *Shortcut) Activate() {
	if s.action != nil {
		s.action()
	}
}

// ToolButton is a toolbar entry bound to a named action. selected reports
// whether it should be drawn pressed.
type ToolButton struct {
	label    string
	action   string
	rect     image.Rectangle
	trigger  func(string)
	selected func() bool
}

func (tb *ToolButton) Draw(dst *image.RGBA, state ButtonState) {
	draw.Draw(dst, tb.rect, &image.Uniform{stateColor(state)}, image.Point{}, draw.Src)
	d := &font.Drawer{Dst: dst, Src: image.Black, Face: basicfont.Face7x13,
		Dot: fixed.P(tb.rect.Min.X+4, tb.rect.Min.Y+16)}
	d.DrawString(tb.label)
}

func (tb *ToolButton) Rect() image.Rectangle { return tb.rect }

func (tb *ToolButton) SetRect(r image.Rectangle) { tb.rect = r }

func (tb *ToolButton) Activate() {
	if tb.trigger != nil {
		tb.trigger(tb.action)
	}
}

var toolLabels = []struct{ label, action string }{
	{"B:Pen", "pen"},
	{"E:Erase", "eraser"},
	{"C:Calib", "calibrate"},
	{"M:Meas", "measure"},
	{"^H:Annot", "annotate"},
	{"R:Revise", "revise"},
	{"^G:Detect", "detect"},
	{"^T:Train", "train"},
}

// fitToolbar widens the toolbar so every label fits.
func fitToolbar() {
	d := &font.Drawer{Face: basicfont.Face7x13}
	widest := d.MeasureString("defectmark").Ceil() + 8
	for _, tl := range toolLabels {
		if w := d.MeasureString(tl.label).Ceil() + 8; w > widest {
			widest = w
		}
	}
	if widest > toolbarWidth {
		toolbarWidth = widest
	}
}

func newToolButtons(trigger func(string), selected func(string) bool) []*CacheButton {
	out := make([]*CacheButton, 0, len(toolLabels))
	for _, tl := range toolLabels {
		action := tl.action
		out = append(out, &CacheButton{Button: &ToolButton{
			label:    tl.label,
			action:   action,
			trigger:  trigger,
			selected: func() bool { return selected(action) },
		}})
	}
	return out
}

func drawToolbar(dst *image.RGBA, buttons []*CacheButton, hover, height int) int {
	draw.Draw(dst, image.Rect(0, statusHeight, toolbarWidth, height-bottomHeight),
		&image.Uniform{barColor}, image.Point{}, draw.Src)
	y := statusHeight
	for i, cb := range buttons {
		cb.SetRect(image.Rect(0, y, toolbarWidth, y+24))
		state := StateDefault
		if tb, ok := cb.Button.(*ToolButton); ok && tb.selected != nil && tb.selected() {
			state = StatePressed
		} else if i == hover {
			state = StateHover
		}
		cb.Draw(dst, state)
		y += 24
	}
	return y
}

// drawWidth shows the brush width preview under the tool buttons.
func drawWidth(dst *image.RGBA, y, w int, c color.Color) {
	rect := image.Rect(0, y+4, toolbarWidth, y+24)
	draw.Draw(dst, rect, &image.Uniform{buttonColor}, image.Point{}, draw.Src)
	d := &font.Drawer{Dst: dst, Src: image.Black, Face: basicfont.Face7x13, Dot: fixed.P(4, y+18)}
	d.DrawString(fmt.Sprintf("%d", w))
	cy := y + 14
	bar := image.Rect(28, cy-w/2, toolbarWidth-4, cy-w/2+w)
	draw.Draw(dst, bar.Intersect(rect), &image.Uniform{c}, image.Point{}, draw.Over)
}

func drawStatus(dst *image.RGBA, width int, text string) {
	draw.Draw(dst, image.Rect(0, 0, width, statusHeight), &image.Uniform{barColor}, image.Point{}, draw.Src)
	d := &font.Drawer{Dst: dst, Src: image.Black, Face: basicfont.Face7x13, Dot: fixed.P(4, 16)}
	d.DrawString("defectmark")
	d.Dot = fixed.P(toolbarWidth+4, 16)
	d.DrawString(text)
}

func layoutShortcuts(shortcuts []Shortcut, height int) {
	x := toolbarWidth + 4
	y := height - bottomHeight + 16
	meas := &font.Drawer{Face: basicfont.Face7x13}
	for i := range shortcuts {
		sc := &shortcuts[i]
		w := meas.MeasureString(sc.label).Ceil()
		sc.SetRect(image.Rect(x-2, y-14, x+w+2, y+4))
		x = sc.rect.Max.X + 8
	}
}

func drawShortcuts(dst *image.RGBA, shortcuts []Shortcut, hover, width, height int) {
	rect := image.Rect(0, height-bottomHeight, width, height)
	draw.Draw(dst, rect, &image.Uniform{barColor}, image.Point{}, draw.Src)
	for i := range shortcuts {
		state := StateDefault
		if i == hover {
			state = StateHover
		}
		shortcuts[i].Draw(dst, state)
	}
}

func drawRect(img *image.RGBA, rect image.Rectangle, col color.Color) {
	u := &image.Uniform{col}
	draw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+1), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(rect.Min.X, rect.Max.Y-1, rect.Max.X, rect.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+1, rect.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(rect.Max.X-1, rect.Min.Y, rect.Max.X, rect.Max.Y), u, image.Point{}, draw.Src)
}
