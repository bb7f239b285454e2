// Package notify reports finished saves, detections and training runs as
// desktop notifications.
package notify

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/defectmark/internal/platform"
)

// Event identifies a notification trigger.
type Event string

const (
	// EventSave fires when a mask or image has been written.
	EventSave Event = "save"
	// EventDetect fires when a predicted mask has been applied.
	EventDetect Event = "detect"
	// EventTrain fires when a training run finishes.
	EventTrain Event = "train"
	// EventCopy fires when data lands on the clipboard.
	EventCopy Event = "copy"
)

// Templates maps each event to a printf template taking one string.
var Templates = map[Event]string{
	EventSave:   "Saved %s",
	EventDetect: "Mask predicted (%s annotated)",
	EventTrain:  "Training finished: %s",
	EventCopy:   "Copied %s to clipboard",
}

var send = platform.Notify

// Notifier sends notifications for the enabled events.
type Notifier struct {
	Title   string
	enabled map[Event]bool
}

// New returns a notifier with every event disabled.
func New() *Notifier {
	return &Notifier{Title: "defectmark", enabled: map[Event]bool{}}
}

// Enable toggles notifications for event.
func (n *Notifier) Enable(event Event, on bool) {
	if n == nil {
		return
	}
	n.enabled[event] = on
}

// Enabled reports whether event is enabled.
func (n *Notifier) Enabled(event Event) bool {
	return n != nil && n.enabled[event]
}

// Saved reports a written file, using it as the icon when it exists.
func (n *Notifier) Saved(path string) {
	if !n.Enabled(EventSave) {
		return
	}
	opts := platform.Options{}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
		if _, err := os.Stat(abs); err == nil {
			opts.IconPath = abs
		}
	}
	n.dispatch(EventSave, path, opts)
}

// Detected reports a predicted mask with a preview of the overlay.
func (n *Notifier) Detected(coverage float64, preview image.Image) {
	if !n.Enabled(EventDetect) {
		return
	}
	opts := platform.Options{}
	if preview != nil {
		path, cleanup, err := writePreview(preview)
		if err != nil {
			log.Printf("notification preview: %v", err)
		} else {
			defer cleanup()
			opts.IconPath = path
		}
	}
	n.dispatch(EventDetect, fmt.Sprintf("%.1f%%", coverage*100), opts)
}

// Trained reports the outcome of a training run.
func (n *Notifier) Trained(summary string) {
	n.dispatch(EventTrain, summary, platform.Options{})
}

// Copied reports a clipboard write.
func (n *Notifier) Copied(what string) {
	if strings.TrimSpace(what) == "" {
		what = "mask"
	}
	n.dispatch(EventCopy, what, platform.Options{})
}

func (n *Notifier) dispatch(event Event, detail string, opts platform.Options) {
	if !n.Enabled(event) {
		return
	}
	tmpl := Templates[event]
	if tmpl == "" {
		return
	}
	body := strings.TrimSpace(fmt.Sprintf(tmpl, strings.TrimSpace(detail)))
	if err := send(n.Title, body, opts); err != nil {
		log.Printf("notification %s: %v", event, err)
	}
}

func writePreview(img image.Image) (string, func(), error) {
	f, err := os.CreateTemp("", "defectmark-preview-*.png")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, err
	}
	return path, func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("remove preview: %v", err)
		}
	}, nil
}
