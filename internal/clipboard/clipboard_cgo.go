//go:build (linux || freebsd || openbsd || netbsd || dragonfly) && cgo

package clipboard

import (
	"sync"

	"golang.design/x/clipboard"
)

var (
	initOnce sync.Once
	initErr  error
)

func ensureInit() error {
	initOnce.Do(func() {
		if !hasDisplay() {
			initErr = errNoDisplay
			return
		}
		initErr = clipboard.Init()
	})
	return initErr
}

func publish(p payload, data []byte) error {
	if err := ensureInit(); err != nil {
		return err
	}
	f := clipboard.FmtText
	if p == maskPNG {
		f = clipboard.FmtImage
	}
	clipboard.Write(f, data)
	return nil
}
