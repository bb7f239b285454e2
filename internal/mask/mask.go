// Package mask converts between binary mask files and the semi-transparent
// overlay painted in the annotation layer.
package mask

import (
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// OverlayAlpha is the alpha given to foreground pixels (0.6 of opaque).
const OverlayAlpha = 153

// Highlight is the default foreground colour of an overlay.
var Highlight = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: OverlayAlpha}

// ToOverlay converts a black and white mask into an overlay. Pixels with
// luminance of at least one half become fg, the rest become transparent.
func ToOverlay(img image.Image, fg color.NRGBA) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if g.Y >= 128 {
				out.SetNRGBA(x-b.Min.X, y-b.Min.Y, fg)
			}
		}
	}
	return out
}

// Flatten returns a copy of an overlay with every alpha set to opaque, so
// transparent pixels become black.
func Flatten(overlay *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(overlay.Bounds())
	copy(out.Pix, overlay.Pix)
	for i := 3; i < len(out.Pix); i += 4 {
		if out.Pix[i] == 0 {
			out.Pix[i-3], out.Pix[i-2], out.Pix[i-1] = 0, 0, 0
		}
		out.Pix[i] = 0xff
	}
	return out
}

// Coverage returns the fraction of overlay pixels that carry annotation.
func Coverage(overlay *image.NRGBA) float64 {
	n := len(overlay.Pix) / 4
	if n == 0 {
		return 0
	}
	marked := make([]float64, n)
	for i := range marked {
		if overlay.Pix[i*4+3] != 0 {
			marked[i] = 1
		}
	}
	return floats.Sum(marked) / float64(n)
}

// BaseName strips directory and extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SameBase reports whether an image and a mask file belong together.
func SameBase(imagePath, maskPath string) bool {
	return BaseName(imagePath) == BaseName(maskPath)
}

// PairedPath returns the mask path for an image: same directory and base
// name with a .png extension.
func PairedPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".png"
}
