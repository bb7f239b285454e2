// Package segment turns a source image into a predicted mask overlay using a
// pluggable probability model.
package segment

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/example/defectmark/internal/mask"
)

// ErrShape is returned when a model answers with a map of the wrong size.
var ErrShape = errors.New("probability map does not match model input")

// ProbabilityMap holds one foreground probability per pixel, row major.
type ProbabilityMap struct {
	Width, Height int
	P             []float32
}

// At returns the probability at x, y.
func (m *ProbabilityMap) At(x, y int) float32 {
	return m.P[y*m.Width+x]
}

// Model predicts a probability map for a grayscale image already resized to
// the model input.
type Model interface {
	Predict(ctx context.Context, img *image.Gray) (*ProbabilityMap, error)
	Close() error
}

// Detector prepares images for a Model and converts its answer to an
// annotation overlay.
type Detector struct {
	Model     Model
	Input     image.Point
	Threshold float64
	Color     color.NRGBA
}

// NewDetector returns a detector with the stock 480x320 input and 0.5
// threshold.
func NewDetector(m Model) *Detector {
	return &Detector{
		Model:     m,
		Input:     image.Pt(480, 320),
		Threshold: 0.5,
		Color:     mask.Highlight,
	}
}

// Detect predicts a mask for img and returns it as an overlay of the same
// size as img.
func (d *Detector) Detect(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	if d.Model == nil {
		return nil, errors.New("no model loaded")
	}
	src := img.Bounds()
	if src.Empty() {
		return nil, errors.New("empty image")
	}
	input := Prepare(img, d.Input)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	probs, err := d.Model.Predict(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if probs.Width != d.Input.X || probs.Height != d.Input.Y || len(probs.P) != probs.Width*probs.Height {
		return nil, fmt.Errorf("%w: got %dx%d", ErrShape, probs.Width, probs.Height)
	}
	binary := Threshold(probs, d.Threshold)
	full := image.NewGray(image.Rect(0, 0, src.Dx(), src.Dy()))
	xdraw.NearestNeighbor.Scale(full, full.Bounds(), binary, binary.Bounds(), draw.Src, nil)
	return mask.ToOverlay(full, d.Color), nil
}

// Prepare converts img to grayscale and resizes it to size.
func Prepare(img image.Image, size image.Point) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	if gray.Bounds().Size() == size {
		return gray
	}
	out := image.NewGray(image.Rectangle{Max: size})
	xdraw.BiLinear.Scale(out, out.Bounds(), gray, gray.Bounds(), draw.Src, nil)
	return out
}

// Threshold returns a black and white image, white where the probability is
// strictly greater than t.
func Threshold(m *ProbabilityMap, t float64) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, p := range m.P {
		if float64(p) > t {
			out.Pix[i] = 0xff
		}
	}
	return out
}
