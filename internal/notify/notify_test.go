package notify

import (
	"image"
	"os"
	"strings"
	"testing"

	"github.com/example/defectmark/internal/platform"
)

type sent struct {
	title, body string
	opts        platform.Options
}

func capture(t *testing.T) *[]sent {
	t.Helper()
	var got []sent
	orig := send
	send = func(title, body string, opts platform.Options) error {
		if opts.IconPath != "" {
			if _, err := os.Stat(opts.IconPath); err != nil {
				t.Errorf("icon %s missing during send: %v", opts.IconPath, err)
			}
		}
		got = append(got, sent{title, body, opts})
		return nil
	}
	t.Cleanup(func() { send = orig })
	return &got
}

func TestDisabledEventsAreSilent(t *testing.T) {
	got := capture(t)
	n := New()
	n.Saved("mask.png")
	n.Trained("done")
	var nilNotifier *Notifier
	nilNotifier.Copied("x")
	if len(*got) != 0 {
		t.Fatalf("unexpected notifications %+v", *got)
	}
}

func TestDetectedUsesPreview(t *testing.T) {
	got := capture(t)
	n := New()
	n.Enable(EventDetect, true)
	n.Detected(0.125, image.NewNRGBA(image.Rect(0, 0, 4, 4)))
	if len(*got) != 1 {
		t.Fatalf("got %d notifications", len(*got))
	}
	msg := (*got)[0]
	if msg.body != "Mask predicted (12.5% annotated)" {
		t.Errorf("body %q", msg.body)
	}
	if msg.opts.IconPath == "" {
		t.Fatal("expected a preview icon")
	}
	if _, err := os.Stat(msg.opts.IconPath); !os.IsNotExist(err) {
		t.Errorf("preview not removed: %v", err)
	}
}

func TestSavedReportsAbsolutePath(t *testing.T) {
	got := capture(t)
	n := New()
	n.Enable(EventSave, true)
	n.Saved("relative/mask.png")
	if len(*got) != 1 || !strings.HasPrefix((*got)[0].body, "Saved /") {
		t.Fatalf("unexpected %+v", *got)
	}
	if (*got)[0].opts.IconPath != "" {
		t.Error("missing file used as icon")
	}
}
