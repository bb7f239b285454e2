// Package ruler implements the two-point calibration and measurement
// workflow drawn on the calibration overlay.
package ruler

import (
	"errors"
	"fmt"
	"image/color"

	"seehuhn.de/go/geom/vec"

	"github.com/example/defectmark/internal/raster"
)

var (
	// ErrUncalibrated is returned when a measurement is requested before a
	// scale has been set.
	ErrUncalibrated = errors.New("no scale added")
	// ErrInvalidLength is returned for zero, negative or cancelled lengths.
	ErrInvalidLength = errors.New("length not valid")
	// ErrNotAwaitingLength is returned by SubmitLength outside a calibration.
	ErrNotAwaitingLength = errors.New("no calibration line pending")
)

// Mode is the workflow being run.
type Mode int

const (
	ModeNone Mode = iota
	Calibrate
	Measure
)

func (m Mode) String() string {
	switch m {
	case Calibrate:
		return "calibrate"
	case Measure:
		return "measure"
	}
	return "none"
}

// Phase is the position in the workflow.
type Phase int

const (
	Idle Phase = iota
	AwaitingFirstPoint
	AwaitingSecondPoint
	// AwaitingLength holds a finished calibration line until the physical
	// length is entered.
	AwaitingLength
)

func (p Phase) String() string {
	switch p {
	case AwaitingFirstPoint:
		return "awaiting first point"
	case AwaitingSecondPoint:
		return "awaiting second point"
	case AwaitingLength:
		return "awaiting length"
	}
	return "idle"
}

// Style controls how markers and lines are drawn.
type Style struct {
	PointColor color.NRGBA
	PointWidth int
	LineColor  color.NRGBA
	LineWidth  int
	Unit       string
}

// DefaultStyle matches the stock blue markers with millimetre units.
func DefaultStyle() Style {
	return Style{
		PointColor: color.NRGBA{B: 0xff, A: 0xff},
		PointWidth: 4,
		LineColor:  color.NRGBA{B: 0x80, A: 0xff},
		LineWidth:  2,
		Unit:       "mm",
	}
}

// State is a snapshot of the workflow.
type State struct {
	Phase         Phase
	Mode          Mode
	First         vec.Vec2
	Second        vec.Vec2
	HasFirst      bool
	HasSecond     bool
	PixelsPerUnit float64
}

// Result is produced when a workflow completes.
type Result struct {
	Mode          Mode
	PixelDistance float64
	// Length is set for measurements.
	Length float64
	// PixelsPerUnit is the scale in effect after the workflow.
	PixelsPerUnit float64
	Unit          string
}

// String formats the result for the status line.
func (r Result) String() string {
	if r.Mode == Calibrate {
		return fmt.Sprintf("Scale is %.2f pix/%s", r.PixelsPerUnit, r.Unit)
	}
	return fmt.Sprintf("Length is %.2f %s", r.Length, r.Unit)
}

// Engine runs the ruler state machine.
type Engine struct {
	state State
	style Style
}

// New returns an idle, uncalibrated engine.
func New(style Style) *Engine {
	return &Engine{style: style}
}

// State returns a copy of the current state.
func (e *Engine) State() State { return e.state }

// Style returns the drawing style.
func (e *Engine) Style() Style { return e.style }

// PixelsPerUnit returns the current scale, 0 when uncalibrated.
func (e *Engine) PixelsPerUnit() float64 { return e.state.PixelsPerUnit }

// Start begins a workflow. Measure fails with ErrUncalibrated when no scale
// is set, leaving the engine idle.
func (e *Engine) Start(m Mode) error {
	e.idle()
	if m == Measure && e.state.PixelsPerUnit <= 0 {
		return ErrUncalibrated
	}
	if m != Calibrate && m != Measure {
		return fmt.Errorf("unknown ruler mode %d", m)
	}
	e.state.Mode = m
	e.state.Phase = AwaitingFirstPoint
	return nil
}

// Press handles a primary-button press at content point p. A non-nil result
// is returned when a measurement completes. Calibrations complete through
// SubmitLength.
func (e *Engine) Press(p vec.Vec2, overlay *raster.Surface) (*Result, error) {
	switch e.state.Phase {
	case AwaitingFirstPoint:
		overlay.Fill(raster.Transparent)
		e.state.First = p
		e.state.HasFirst = true
		overlay.DrawPoint(p, e.style.PointWidth, e.style.PointColor)
		e.state.Phase = AwaitingSecondPoint
		return nil, nil
	case AwaitingSecondPoint:
		e.state.Second = p
		e.state.HasSecond = true
		overlay.DrawLine(e.state.First, p, e.style.LineWidth, e.style.LineColor, raster.Source)
		overlay.DrawPoint(e.state.First, e.style.PointWidth, e.style.PointColor)
		overlay.DrawPoint(p, e.style.PointWidth, e.style.PointColor)
		if e.state.Mode == Calibrate {
			e.state.Phase = AwaitingLength
			return nil, nil
		}
		if e.state.PixelsPerUnit <= 0 {
			e.idle()
			return nil, ErrUncalibrated
		}
		d := e.distance()
		r := &Result{
			Mode:          Measure,
			PixelDistance: d,
			Length:        d / e.state.PixelsPerUnit,
			PixelsPerUnit: e.state.PixelsPerUnit,
			Unit:          e.style.Unit,
		}
		e.idle()
		return r, nil
	}
	return nil, nil
}

// PendingDistance returns the pixel length of the calibration line waiting
// for SubmitLength.
func (e *Engine) PendingDistance() (float64, bool) {
	if e.state.Phase != AwaitingLength {
		return 0, false
	}
	return e.distance(), true
}

// SubmitLength completes a calibration with the physical length of the
// line. Non-positive lengths fail with ErrInvalidLength and keep the
// previous scale. The engine is idle afterwards in every case.
func (e *Engine) SubmitLength(length float64) (*Result, error) {
	if e.state.Phase != AwaitingLength {
		return nil, ErrNotAwaitingLength
	}
	defer e.idle()
	if !(length > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLength, length)
	}
	d := e.distance()
	e.state.PixelsPerUnit = d / length
	return &Result{
		Mode:          Calibrate,
		PixelDistance: d,
		PixelsPerUnit: e.state.PixelsPerUnit,
		Unit:          e.style.Unit,
	}, nil
}

// CancelLength abandons a pending calibration.
func (e *Engine) CancelLength() error {
	if e.state.Phase != AwaitingLength {
		return ErrNotAwaitingLength
	}
	e.idle()
	return ErrInvalidLength
}

// Abort returns to Idle without touching the scale.
func (e *Engine) Abort() {
	e.idle()
}

// Reset forgets the scale and returns to Idle.
func (e *Engine) Reset() {
	e.state = State{}
}

func (e *Engine) distance() float64 {
	return e.state.Second.Sub(e.state.First).Length()
}

func (e *Engine) idle() {
	e.state = State{PixelsPerUnit: e.state.PixelsPerUnit}
}
