// Package paint implements freehand pen and eraser strokes on a raster
// surface.
package paint

import (
	"image/color"

	"seehuhn.de/go/geom/vec"

	"github.com/example/defectmark/internal/raster"
)

// Mode selects the brush behaviour.
type Mode int

const (
	Pen Mode = iota
	Eraser
)

func (m Mode) String() string {
	if m == Eraser {
		return "eraser"
	}
	return "pen"
}

// Brush describes how segments are drawn.
type Brush struct {
	Mode  Mode
	Width int
	Color color.NRGBA
}

func (b Brush) compositing() raster.Compositing {
	if b.Mode == Eraser {
		return raster.Clear
	}
	return raster.Source
}

// Phase is the engine state.
type Phase int

const (
	Idle Phase = iota
	Stroking
)

// Engine captures one stroke at a time. All points are in content space.
type Engine struct {
	phase Phase
	last  vec.Vec2
}

// Phase reports whether a stroke is in progress.
func (e *Engine) Phase() Phase { return e.phase }

// Press starts a stroke when enabled and stamps the first point. It reports
// whether the surface changed.
func (e *Engine) Press(p vec.Vec2, enabled bool, b Brush, s *raster.Surface) bool {
	if !enabled {
		return false
	}
	e.phase = Stroking
	e.last = p
	if b.Mode == Eraser {
		s.DrawLine(p, p, b.Width, b.Color, raster.Clear)
	} else {
		s.DrawPoint(p, b.Width, b.Color)
	}
	return true
}

// Move extends the stroke to p. Moves are ignored when idle or disabled.
func (e *Engine) Move(p vec.Vec2, enabled bool, b Brush, s *raster.Surface) bool {
	if !enabled || e.phase != Stroking {
		return false
	}
	s.DrawLine(e.last, p, b.Width, b.Color, b.compositing())
	e.last = p
	return true
}

// Release ends the stroke.
func (e *Engine) Release() {
	e.phase = Idle
	e.last = vec.Vec2{}
}
