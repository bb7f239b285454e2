//go:build linux || freebsd || openbsd || netbsd || dragonfly

// Package clipboard hands finished masks and measurement readouts to the
// desktop clipboard so they can be pasted into inspection reports.
package clipboard

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"
)

// ErrEmpty is returned for a mask without pixels or a blank readout.
var ErrEmpty = errors.New("nothing to copy")

var errNoDisplay = errors.New("clipboard needs DISPLAY or WAYLAND_DISPLAY")

type payload int

const (
	maskPNG payload = iota
	readout
)

func hasDisplay() bool {
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// WriteMask publishes a flattened mask as a PNG image.
func WriteMask(img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("copy mask: %w", ErrEmpty)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("copy mask: encode png: %w", err)
	}
	if err := publish(maskPNG, buf.Bytes()); err != nil {
		return fmt.Errorf("copy mask: %w", err)
	}
	return nil
}

// WriteMeasurement publishes a ruler readout such as "Length is 2.00 mm".
func WriteMeasurement(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("copy measurement: %w", ErrEmpty)
	}
	if err := publish(readout, []byte(text)); err != nil {
		return fmt.Errorf("copy measurement: %w", err)
	}
	return nil
}
