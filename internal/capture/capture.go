// Package capture grabs the desktop so it can be annotated like any other
// source image.
package capture

import (
	"errors"
	"fmt"
	"image"
)

// ErrUnsupported is returned where no capture backend exists.
var ErrUnsupported = errors.New("screen capture is not supported on this platform")

var (
	grabX11    = x11RootImage
	grabPortal = portalScreenshot
)

// Screen captures the whole desktop. The X11 root window is read directly;
// when that fails (Wayland, no DISPLAY) the xdg-desktop-portal is asked
// instead. interactive lets the portal show its own selection dialog.
func Screen(interactive bool) (*image.RGBA, error) {
	if !interactive {
		img, err := grabX11()
		if err == nil {
			return img, nil
		}
		shot, perr := grabPortal(false)
		if perr != nil {
			return nil, fmt.Errorf("x11 capture: %v; portal fallback: %w", err, perr)
		}
		return shot, nil
	}
	return grabPortal(true)
}
