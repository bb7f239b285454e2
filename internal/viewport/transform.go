package viewport

import "seehuhn.de/go/geom/vec"

// WheelStep is the default zoom factor applied per wheel tick.
const WheelStep = 1.1

// Zoom limits. A pointer move at MinScale spans at most 64 content pixels
// per widget pixel.
const (
	MinScale = 1.0 / 64
	MaxScale = 64
)

// Drag tracks a secondary-button pan in progress. Last is the widget-space
// position of the previous drag event.
type Drag struct {
	Active bool
	Last   vec.Vec2
}

// Transform maps between widget space and content space.
//
// Origin is the content point shown at the widget centre (Anchor) while Pan
// is zero. Pan is measured in content units so that a drag always covers the
// same content distance regardless of zoom.
type Transform struct {
	Pan    vec.Vec2
	Scale  float64
	Origin vec.Vec2
	Anchor vec.Vec2
	Drag   Drag
}

// NewTransform returns an identity-scaled transform that centres content of
// the given size inside a widget of the given size.
func NewTransform(content, widget vec.Vec2) Transform {
	return Transform{
		Scale:  1,
		Origin: content.Mul(0.5),
		Anchor: widget.Mul(0.5),
	}
}

// ToContent maps a widget-space point into content space.
func (t Transform) ToContent(p vec.Vec2) vec.Vec2 {
	return p.Sub(t.Anchor).Mul(1 / t.Scale).Add(t.Origin).Sub(t.Pan)
}

// ToWidget maps a content-space point into widget space.
func (t Transform) ToWidget(p vec.Vec2) vec.Vec2 {
	return p.Add(t.Pan).Sub(t.Origin).Mul(t.Scale).Add(t.Anchor)
}

// PanBy moves the content by a widget-space delta.
func (t *Transform) PanBy(delta vec.Vec2) {
	t.Pan = t.Pan.Add(delta.Mul(1 / t.Scale))
}

// Zoom multiplies the scale by factor, clamped to [MinScale, MaxScale]. The
// content point under the widget centre does not move. Non-positive factors
// are ignored so Scale stays > 0.
func (t *Transform) Zoom(factor float64) {
	if factor <= 0 {
		return
	}
	t.Scale = min(max(t.Scale*factor, MinScale), MaxScale)
}

// WheelZoom applies one zoom step per wheel tick; positive ticks zoom in.
// Steps not above 1 fall back to WheelStep.
func (t *Transform) WheelZoom(ticks int, step float64) {
	if step <= 1 {
		step = WheelStep
	}
	for ; ticks > 0; ticks-- {
		t.Zoom(step)
	}
	for ; ticks < 0; ticks++ {
		t.Zoom(1 / step)
	}
}

// BeginDrag starts a pan at widget point p.
func (t *Transform) BeginDrag(p vec.Vec2) {
	t.Drag = Drag{Active: true, Last: p}
}

// DragTo pans by the distance from the previous drag point and reports
// whether the transform changed.
func (t *Transform) DragTo(p vec.Vec2) bool {
	if !t.Drag.Active {
		return false
	}
	t.PanBy(p.Sub(t.Drag.Last))
	t.Drag.Last = p
	return true
}

// EndDrag finishes a pan.
func (t *Transform) EndDrag() {
	t.Drag = Drag{}
}

// Reset clears pan and zoom while keeping the origin and anchor.
func (t *Transform) Reset() {
	t.Pan = vec.Vec2{}
	t.Scale = 1
	t.Drag = Drag{}
}
