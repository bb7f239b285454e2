//go:build !linux

package platform

// Notify is a no-op where no notification bus is available.
func Notify(title, body string, opts Options) error {
	return nil
}
