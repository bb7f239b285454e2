// Package viewport stacks the display, calibration and annotation layers,
// keeps their transforms in step and routes pointer input to them.
package viewport

import (
	"errors"
	"fmt"
	"image"

	"seehuhn.de/go/geom/vec"

	"github.com/example/defectmark/internal/mask"
	"github.com/example/defectmark/internal/paint"
	"github.com/example/defectmark/internal/raster"
	"github.com/example/defectmark/internal/ruler"
)

var (
	// ErrNoImage is returned by actions that need a loaded image.
	ErrNoImage = errors.New("no image loaded")
	// ErrNoMask is returned by actions that need a mask.
	ErrNoMask = errors.New("no mask loaded")
)

// Button identifies the pointer button of an event.
type Button int

const (
	NoButton Button = iota
	Primary
	Secondary
)

// EventKind is the type of pointer event.
type EventKind int

const (
	Press EventKind = iota
	Release
	Move
	Wheel
)

// PointerEvent is a pointer event in widget coordinates.
type PointerEvent struct {
	Kind   EventKind
	Button Button
	Pos    vec.Vec2
	// Ticks is the wheel delta; positive zooms in.
	Ticks int
}

// Controller owns the layer stack, the session and the tool engines.
type Controller struct {
	stack   Stack
	session Session
	painter paint.Engine
	ruler   *ruler.Engine
	widget  image.Point
	content image.Point

	hasImage bool
	hasMask  bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithSession replaces the default session.
func WithSession(s Session) Option {
	return func(c *Controller) { c.session = s }
}

// WithRulerStyle sets the marker style and unit.
func WithRulerStyle(st ruler.Style) Option {
	return func(c *Controller) { c.ruler = ruler.New(st) }
}

// WithSize sets the widget size the layers are created with.
func WithSize(size image.Point) Option {
	return func(c *Controller) { c.widget = size }
}

// WithRepaint installs a callback run for each layer needing a repaint.
func WithRepaint(fn func(LayerID)) Option {
	return func(c *Controller) { c.stack.OnRepaint = fn }
}

// New builds the three layers and links them as partners.
func New(opts ...Option) *Controller {
	c := &Controller{
		session: DefaultSession(),
		widget:  image.Pt(800, 600),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ruler == nil {
		c.ruler = ruler.New(ruler.DefaultStyle())
	}
	c.content = c.widget
	for id := DisplayLayer; id < layerCount; id++ {
		c.stack.Put(&Layer{id: id})
	}
	c.stack.Link(DisplayLayer, CalibrationLayer, AnnotationLayer)
	c.stack.Link(CalibrationLayer, DisplayLayer, AnnotationLayer)
	c.stack.Link(AnnotationLayer, DisplayLayer, CalibrationLayer)
	c.resetSurfaces()
	return c
}

// Stack exposes the layer registry.
func (c *Controller) Stack() *Stack { return &c.stack }

// Layer returns a layer by ID.
func (c *Controller) Layer(id LayerID) *Layer { return c.stack.Layer(id) }

// Session returns the session for reading.
func (c *Controller) Session() *Session { return &c.session }

// Ruler returns the ruler engine state.
func (c *Controller) Ruler() ruler.State { return c.ruler.State() }

// RulerStyle returns the marker style and unit.
func (c *Controller) RulerStyle() ruler.Style { return c.ruler.Style() }

// HasImage reports whether an image is loaded.
func (c *Controller) HasImage() bool { return c.hasImage }

// HasMask reports whether a mask is loaded or predicted.
func (c *Controller) HasMask() bool { return c.hasMask }

// ContentSize returns the size shared by all layer surfaces.
func (c *Controller) ContentSize() image.Point { return c.content }

// WidgetSize returns the view size.
func (c *Controller) WidgetSize() image.Point { return c.widget }

func (c *Controller) resetSurfaces() {
	c.content = c.widget
	c.layer(DisplayLayer).replace(raster.New(c.widget, c.session.Backdrop))
	c.layer(CalibrationLayer).replace(raster.New(c.widget, raster.Transparent))
	c.layer(AnnotationLayer).replace(raster.New(c.widget, raster.Transparent))
	c.resetTransforms()
}

func (c *Controller) resetTransforms() {
	t := NewTransform(size(c.content), size(c.widget))
	for _, l := range c.stack.Ordered() {
		l.transform = t
		l.dirty = true
	}
}

func (c *Controller) layer(id LayerID) *Layer {
	return c.stack.Layer(id)
}

// Resize changes the widget size. The pan and zoom are kept; only the
// widget centre moves.
func (c *Controller) Resize(widget image.Point) {
	if widget == c.widget || widget.X <= 0 || widget.Y <= 0 {
		return
	}
	c.widget = widget
	anchor := size(widget).Mul(0.5)
	for _, l := range c.stack.Ordered() {
		l.transform.Anchor = anchor
		l.dirty = true
	}
}

// LoadImage shows img in the display layer scaled to fit the view and
// clears both overlays to match its size.
func (c *Controller) LoadImage(img image.Image, path string) {
	display := raster.FromImage(img).ResizeTo(c.widget, raster.Preserve)
	c.content = display.Size()
	c.layer(DisplayLayer).replace(display)
	c.layer(CalibrationLayer).replace(raster.New(c.content, raster.Transparent))
	c.layer(AnnotationLayer).replace(raster.New(c.content, raster.Transparent))
	c.resetTransforms()
	c.ruler.Abort()
	c.painter.Release()
	c.setAnnotating(CalibrationLayer, false)
	c.setAnnotating(AnnotationLayer, false)
	c.hasImage = true
	c.hasMask = false
	c.session.ImagePath = path
	c.session.MaskPath = ""
}

// LoadMask converts a binary mask to an overlay and installs it in the
// annotation layer. A mask whose base name differs from the image is only
// loaded when confirm agrees; otherwise nothing changes.
func (c *Controller) LoadMask(img image.Image, path string, confirm mask.ConfirmFunc) error {
	if !c.hasImage {
		return ErrNoImage
	}
	if err := mask.CheckPair(c.session.ImagePath, path, confirm); err != nil {
		return fmt.Errorf("load mask %s: %w", path, err)
	}
	c.installMask(mask.ToOverlay(img, c.session.PenColor))
	c.session.MaskPath = path
	return nil
}

// ApplyPrediction installs a predicted overlay. The overlay is owned by the
// controller afterwards.
func (c *Controller) ApplyPrediction(overlay *image.NRGBA) error {
	if !c.hasImage {
		return ErrNoImage
	}
	c.installMask(overlay)
	c.session.MaskPath = ""
	return nil
}

func (c *Controller) installMask(overlay *image.NRGBA) {
	s := raster.FromImage(overlay)
	if s.Size() != c.content {
		s = s.ResizeTo(c.content, raster.Stretch)
	}
	c.painter.Release()
	c.layer(AnnotationLayer).replace(s)
	c.hasMask = true
}

// Annotate enables painting on the annotation layer with the pen.
func (c *Controller) Annotate() error {
	if !c.hasImage {
		return ErrNoImage
	}
	c.session.Mode = paint.Pen
	c.hasMask = true
	c.setAnnotating(AnnotationLayer, true)
	return nil
}

// Revise toggles painting on an existing mask and reports the new state.
func (c *Controller) Revise() (bool, error) {
	if !c.hasMask {
		return false, ErrNoMask
	}
	on := !c.layer(AnnotationLayer).annotating
	if !on {
		c.painter.Release()
	}
	c.setAnnotating(AnnotationLayer, on)
	return on, nil
}

// ResetView drops any pan and zoom on every layer.
func (c *Controller) ResetView() {
	if c.painter.Phase() == paint.Stroking {
		return
	}
	c.resetTransforms()
	c.stack.RequestRepaint(DisplayLayer)
}

// SelectMode switches between pen and eraser.
func (c *Controller) SelectMode(m paint.Mode) {
	c.session.Mode = m
}

// SetWidth sets the width of the current brush.
func (c *Controller) SetWidth(w int) {
	c.session.SetWidth(w)
}

// SetBusy blocks or restores pointer input.
func (c *Controller) SetBusy(b bool) {
	c.session.Busy = b
	if b {
		c.painter.Release()
		for _, l := range c.stack.Ordered() {
			l.transform.EndDrag()
		}
	}
}

// StartRuler begins a calibration or measurement on the calibration layer.
func (c *Controller) StartRuler(m ruler.Mode) error {
	if !c.hasImage {
		return ErrNoImage
	}
	if err := c.ruler.Start(m); err != nil {
		c.setAnnotating(CalibrationLayer, false)
		return err
	}
	c.painter.Release()
	c.setAnnotating(CalibrationLayer, true)
	return nil
}

// PendingLength reports the pixel length waiting for a physical value.
func (c *Controller) PendingLength() (float64, bool) {
	return c.ruler.PendingDistance()
}

// SubmitLength finishes a calibration.
func (c *Controller) SubmitLength(v float64) (*ruler.Result, error) {
	defer c.setAnnotating(CalibrationLayer, false)
	return c.ruler.SubmitLength(v)
}

// CancelLength abandons a calibration waiting for its length.
func (c *Controller) CancelLength() error {
	defer c.setAnnotating(CalibrationLayer, false)
	return c.ruler.CancelLength()
}

// Clear returns every layer to its startup state and forgets the scale.
func (c *Controller) Clear() {
	c.ruler.Reset()
	c.painter.Release()
	c.setAnnotating(CalibrationLayer, false)
	c.setAnnotating(AnnotationLayer, false)
	c.resetSurfaces()
	c.hasImage = false
	c.hasMask = false
	c.session.ImagePath = ""
	c.session.MaskPath = ""
	c.session.Mode = paint.Pen
}

// MaskImage returns the annotation overlay. Use mask.SaveMask to flatten
// and write it.
func (c *Controller) MaskImage() (*image.NRGBA, error) {
	if !c.hasImage {
		return nil, ErrNoImage
	}
	return c.layer(AnnotationLayer).surface.Image(), nil
}

// DisplayImage returns the image shown in the display layer.
func (c *Controller) DisplayImage() (*image.NRGBA, error) {
	if !c.hasImage {
		return nil, ErrNoImage
	}
	return c.layer(DisplayLayer).surface.Image(), nil
}

// Coverage returns the annotated fraction of the mask.
func (c *Controller) Coverage() float64 {
	return mask.Coverage(c.layer(AnnotationLayer).surface.Pixels())
}

func (c *Controller) setAnnotating(id LayerID, on bool) {
	if l := c.layer(id); l != nil && l.annotating != on {
		l.annotating = on
		c.stack.RequestRepaint(id)
	}
}

// clickTarget is the layer receiving primary-button tools: the ruler while
// a measurement runs, then the annotation layer when painting is enabled.
func (c *Controller) clickTarget() *Layer {
	if l := c.layer(CalibrationLayer); l != nil && l.annotating {
		return l
	}
	if l := c.layer(AnnotationLayer); l != nil && l.annotating {
		return l
	}
	return nil
}

// viewTarget is the top-most layer, which drives pan and zoom.
func (c *Controller) viewTarget() *Layer {
	if l := c.clickTarget(); l != nil {
		return l
	}
	ordered := c.stack.Ordered()
	if len(ordered) == 0 {
		return nil
	}
	return ordered[len(ordered)-1]
}

// Tracking reports whether a stroke or a pan is in progress. The window
// keeps sending moves and the closing release while it is true, even when
// the pointer has left the view.
func (c *Controller) Tracking() bool {
	if c.painter.Phase() == paint.Stroking {
		return true
	}
	view := c.viewTarget()
	return view != nil && view.transform.Drag.Active
}

// HandlePointer dispatches one pointer event. A result is returned when a
// measurement completes.
func (c *Controller) HandlePointer(ev PointerEvent) (*ruler.Result, error) {
	if c.session.Busy {
		return nil, nil
	}
	view := c.viewTarget()
	if view == nil {
		return nil, nil
	}
	switch ev.Kind {
	case Wheel:
		if ev.Ticks != 0 {
			view.transform.WheelZoom(ev.Ticks, c.session.ZoomStep)
			c.stack.Propagate(view.id)
		}
	case Press:
		switch ev.Button {
		case Secondary:
			if c.painter.Phase() == paint.Stroking {
				return nil, nil
			}
			view.transform.BeginDrag(ev.Pos)
			c.stack.Propagate(view.id)
		case Primary:
			if view.transform.Drag.Active {
				return nil, nil
			}
			return c.primaryPress(ev.Pos)
		}
	case Move:
		if view.transform.Drag.Active {
			if view.transform.DragTo(ev.Pos) {
				c.stack.Propagate(view.id)
			}
			return nil, nil
		}
		target := c.clickTarget()
		if target == nil || target.id != AnnotationLayer {
			return nil, nil
		}
		p := target.transform.ToContent(ev.Pos)
		if c.painter.Move(p, target.annotating, c.session.Brush(), target.surface) {
			c.stack.Propagate(target.id)
		}
	case Release:
		switch ev.Button {
		case Secondary:
			if view.transform.Drag.Active {
				view.transform.EndDrag()
				c.stack.Propagate(view.id)
			}
		case Primary:
			c.painter.Release()
		}
	}
	return nil, nil
}

func (c *Controller) primaryPress(pos vec.Vec2) (*ruler.Result, error) {
	target := c.clickTarget()
	if target == nil {
		return nil, nil
	}
	p := target.transform.ToContent(pos)
	if target.id == CalibrationLayer {
		r, err := c.ruler.Press(p, target.surface)
		c.stack.RequestRepaint(target.id)
		if ph := c.ruler.State().Phase; ph == ruler.Idle {
			c.setAnnotating(CalibrationLayer, false)
		}
		return r, err
	}
	if c.painter.Press(p, target.annotating, c.session.Brush(), target.surface) {
		c.stack.Propagate(target.id)
	}
	return nil, nil
}

func size(p image.Point) vec.Vec2 {
	return vec.Vec2{X: float64(p.X), Y: float64(p.Y)}
}
