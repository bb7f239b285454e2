package viewport

import (
	"image/color"

	"github.com/example/defectmark/internal/paint"
)

// Session is the editing state shared by the window, the tools and the
// command line. The controller owns it; other code reads it or asks the
// controller for changes.
type Session struct {
	Mode        paint.Mode
	PenWidth    int
	EraserWidth int
	MaxWidth    int
	PenColor    color.NRGBA
	Backdrop    color.NRGBA
	ZoomStep    float64
	ImagePath   string
	MaskPath    string
	// Busy is set while a background task owns the interaction.
	Busy bool
}

// DefaultSession returns the stock brush settings.
func DefaultSession() Session {
	return Session{
		Mode:        paint.Pen,
		PenWidth:    5,
		EraserWidth: 10,
		MaxWidth:    20,
		PenColor:    color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 153},
		Backdrop:    color.NRGBA{R: 48, G: 76, B: 98, A: 0xff},
		ZoomStep:    WheelStep,
	}
}

// Brush returns the brush for the current mode.
func (s *Session) Brush() paint.Brush {
	if s.Mode == paint.Eraser {
		return paint.Brush{Mode: paint.Eraser, Width: s.EraserWidth, Color: s.PenColor}
	}
	return paint.Brush{Mode: paint.Pen, Width: s.PenWidth, Color: s.PenColor}
}

// Width returns the width of the current mode.
func (s *Session) Width() int {
	return s.Brush().Width
}

// SetWidth sets the width for the current mode, clamped to [1, MaxWidth].
func (s *Session) SetWidth(w int) {
	limit := s.MaxWidth
	if limit < 1 {
		limit = 20
	}
	if w < 1 {
		w = 1
	}
	if w > limit {
		w = limit
	}
	if s.Mode == paint.Eraser {
		s.EraserWidth = w
	} else {
		s.PenWidth = w
	}
}
