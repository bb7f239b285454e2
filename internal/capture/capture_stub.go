//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package capture

import "image"

func x11RootImage() (*image.RGBA, error) { return nil, ErrUnsupported }

func portalScreenshot(bool) (*image.RGBA, error) { return nil, ErrUnsupported }
