package viewport

import "github.com/example/defectmark/internal/raster"

// LayerID indexes a layer in the controller registry.
type LayerID int

const (
	DisplayLayer LayerID = iota
	CalibrationLayer
	AnnotationLayer
	layerCount
)

func (id LayerID) String() string {
	switch id {
	case DisplayLayer:
		return "display"
	case CalibrationLayer:
		return "calibration"
	case AnnotationLayer:
		return "annotation"
	}
	return "unknown"
}

// Layer owns one raster surface and its transform. Partners are IDs
// resolved through the owning Stack; a layer never holds another layer.
type Layer struct {
	id         LayerID
	surface    *raster.Surface
	transform  Transform
	partners   []LayerID
	annotating bool
	dirty      bool
}

// ID returns the layer identifier.
func (l *Layer) ID() LayerID { return l.id }

// Surface returns the layer's pixels.
func (l *Layer) Surface() *raster.Surface { return l.surface }

// Transform returns a copy of the layer transform.
func (l *Layer) Transform() Transform { return l.transform }

// Partners lists the layers that mirror this layer's transform.
func (l *Layer) Partners() []LayerID { return append([]LayerID(nil), l.partners...) }

// Annotating reports whether click tools are enabled on the layer.
func (l *Layer) Annotating() bool { return l.annotating }

// Dirty reports whether the layer has a pending repaint.
func (l *Layer) Dirty() bool { return l.dirty }

func (l *Layer) replace(s *raster.Surface) {
	l.surface = s
	l.dirty = true
}
