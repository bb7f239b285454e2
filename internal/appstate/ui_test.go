package appstate

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"
	"seehuhn.de/go/geom/vec"

	"github.com/example/defectmark/internal/mask"
	"github.com/example/defectmark/internal/paint"
	"github.com/example/defectmark/internal/segment"
	"github.com/example/defectmark/internal/viewport"
)

func press(r rune, mods key.Modifiers) key.Event {
	return key.Event{Rune: r, Modifiers: mods, Direction: key.DirPress}
}

func pressCode(c key.Code) key.Event {
	return key.Event{Rune: -1, Code: c, Direction: key.DirPress}
}

func newTestUI(t *testing.T) (*ui, chan any) {
	t.Helper()
	ch := make(chan any, 4)
	ctrl := viewport.New(viewport.WithSize(image.Pt(200, 100)))
	u := newUI(ctrl, func(v any) { ch <- v })
	u.copyImage = func(image.Image) error { return nil }
	u.copyText = func(string) error { return nil }
	return u, ch
}

func loadImage(u *ui, path string) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for i := range img.Pix {
		img.Pix[i] = 0x80
		if i%4 == 3 {
			img.Pix[i] = 0xff
		}
	}
	u.ctrl.LoadImage(img, path)
}

func click(u *ui, x, y float64) {
	pos := vec.Vec2{X: x, Y: y}
	u.pointer(viewport.PointerEvent{Kind: viewport.Press, Button: viewport.Primary, Pos: pos})
	u.pointer(viewport.PointerEvent{Kind: viewport.Release, Button: viewport.Primary, Pos: pos})
}

func TestKeyLookup(t *testing.T) {
	u, _ := newTestUI(t)
	tests := []struct {
		ev   key.Event
		want string
	}{
		{press('c', 0), "calibrate"},
		{press('C', key.ModShift), "calibrate"},
		{press('c', key.ModControl), "copy"},
		{press('c', key.ModControl|key.ModShift), "copyresult"},
		{press('+', key.ModShift), "zoomin"},
		{press('j', key.ModControl), "revise"},
		{press('r', 0), "revise"},
	}
	for _, tt := range tests {
		got, ok := u.lookup(tt.ev)
		if !ok || got != tt.want {
			t.Errorf("lookup(%q, %v) = %q, want %q", tt.ev.Rune, tt.ev.Modifiers, got, tt.want)
		}
	}
	if _, ok := u.lookup(press('z', 0)); ok {
		t.Error("unexpected action for z")
	}
}

func TestClearNeedsSecondPress(t *testing.T) {
	u, _ := newTestUI(t)
	loadImage(u, "a.jpeg")

	u.handleKey(press('k', key.ModControl))
	if !u.ctrl.HasImage() {
		t.Fatal("cleared on first press")
	}
	if !strings.Contains(u.message, "press again") {
		t.Errorf("message %q", u.message)
	}
	u.handleKey(press('b', 0))
	u.handleKey(press('k', key.ModControl))
	if !u.ctrl.HasImage() {
		t.Fatal("confirmation survived another key")
	}
	u.handleKey(press('k', key.ModControl))
	if u.ctrl.HasImage() {
		t.Fatal("second press did not clear")
	}
}

func TestCalibrateThroughLengthPrompt(t *testing.T) {
	u, _ := newTestUI(t)
	loadImage(u, "a.jpeg")

	u.handleKey(press('c', 0))
	click(u, 10, 10)
	click(u, 110, 10)
	if !u.textInputActive {
		t.Fatal("length prompt not shown")
	}
	for _, r := range "2x0" {
		u.handleKey(press(r, 0))
	}
	if u.textInput != "20" {
		t.Fatalf("text input %q", u.textInput)
	}
	u.handleKey(pressCode(key.CodeReturnEnter))
	if u.message != "Scale is 5.00 pix/mm" {
		t.Fatalf("message %q", u.message)
	}

	u.handleKey(press('m', 0))
	click(u, 10, 50)
	click(u, 10, 60)
	if u.message != "Length is 2.00 mm" {
		t.Fatalf("message %q", u.message)
	}
	if u.last == nil || u.last.Length != 2 {
		t.Fatalf("last result %+v", u.last)
	}
}

func TestCancelLengthKeepsScale(t *testing.T) {
	u, _ := newTestUI(t)
	loadImage(u, "a.jpeg")
	u.handleKey(press('c', 0))
	click(u, 0, 0)
	click(u, 30, 40)
	u.handleKey(pressCode(key.CodeEscape))
	if u.textInputActive {
		t.Fatal("prompt still open")
	}
	if u.message != "length not valid" {
		t.Errorf("message %q", u.message)
	}
	if u.ctrl.Ruler().PixelsPerUnit != 0 {
		t.Errorf("scale changed to %v", u.ctrl.Ruler().PixelsPerUnit)
	}
	u.handleKey(press('m', 0))
	if u.message != "no scale added, calibrate first" {
		t.Errorf("message %q", u.message)
	}
}

func TestSaveWritesPairedMask(t *testing.T) {
	u, _ := newTestUI(t)
	dir := t.TempDir()
	u.saveDir = dir
	loadImage(u, filepath.Join("src", "part7.jpeg"))
	u.handleKey(press('h', key.ModControl))
	click(u, 50, 50)

	u.handleKey(press('s', key.ModControl))
	maskPath := filepath.Join(dir, "part7.png")
	if _, err := os.Stat(maskPath); err != nil {
		t.Fatalf("mask not written: %v", err)
	}

	before, _ := os.Stat(maskPath)
	u.handleKey(press('s', key.ModControl))
	if !strings.Contains(u.message, "press again") {
		t.Fatalf("overwrite not confirmed: %q", u.message)
	}
	u.handleKey(press('s', key.ModControl))
	if u.message != "saved "+maskPath {
		t.Fatalf("message %q", u.message)
	}
	after, _ := os.Stat(maskPath)
	if before == nil || after == nil {
		t.Fatal("stat failed")
	}
}

func TestSaveRefusesToReplaceSource(t *testing.T) {
	u, _ := newTestUI(t)
	src := filepath.Join(t.TempDir(), "part.png")
	loadImage(u, src)
	u.handleKey(press('h', key.ModControl))
	u.handleKey(press('s', key.ModControl))
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source path written: %v", err)
	}
}

func TestCopyMaskFlattens(t *testing.T) {
	u, _ := newTestUI(t)
	var got image.Image
	u.copyImage = func(img image.Image) error { got = img; return nil }
	loadImage(u, "a.jpeg")
	u.handleKey(press('h', key.ModControl))
	u.handleKey(press('c', key.ModControl))
	if got == nil {
		t.Fatal("nothing copied")
	}
	_, _, _, a := got.At(0, 0).RGBA()
	if a != 0xffff {
		t.Errorf("copied mask not flattened, alpha %x", a)
	}
}

type leftHalf struct{}

func (leftHalf) Predict(_ context.Context, img *image.Gray) (*segment.ProbabilityMap, error) {
	b := img.Bounds()
	pm := &segment.ProbabilityMap{Width: b.Dx(), Height: b.Dy(), P: make([]float32, b.Dx()*b.Dy())}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx()/2; x++ {
			pm.P[y*b.Dx()+x] = 1
		}
	}
	return pm, nil
}

func (leftHalf) Close() error { return nil }

func TestDetectDeliversThroughSend(t *testing.T) {
	u, ch := newTestUI(t)
	u.detector = segment.NewRunner(segment.NewDetector(leftHalf{}))
	loadImage(u, "a.jpeg")

	u.handleKey(press('g', key.ModControl))
	if !u.ctrl.Session().Busy {
		t.Fatal("controller not busy during detection")
	}
	select {
	case v := <-ch:
		d, ok := v.(detectDone)
		if !ok {
			t.Fatalf("unexpected event %T", v)
		}
		u.applyDetect(d.Result)
	case <-time.After(5 * time.Second):
		t.Fatal("no detection result")
	}
	if u.ctrl.Session().Busy || !u.ctrl.HasMask() {
		t.Fatalf("busy=%v mask=%v", u.ctrl.Session().Busy, u.ctrl.HasMask())
	}
	if c := u.ctrl.Coverage(); c < 0.45 || c > 0.55 {
		t.Errorf("coverage %v", c)
	}
	if !strings.HasPrefix(u.message, "mask predicted") {
		t.Errorf("message %q", u.message)
	}
}

func TestDetectWithoutModel(t *testing.T) {
	u, _ := newTestUI(t)
	loadImage(u, "a.jpeg")
	u.handleKey(press('g', key.ModControl))
	if u.message != "no model loaded" || u.ctrl.Session().Busy {
		t.Fatalf("message %q busy %v", u.message, u.ctrl.Session().Busy)
	}
}

func TestWidthKeys(t *testing.T) {
	u, _ := newTestUI(t)
	u.handleKey(press(']', 0))
	if w := u.ctrl.Session().PenWidth; w != 6 {
		t.Errorf("pen width %d", w)
	}
	u.handleKey(press('e', 0))
	u.handleKey(press('[', 0))
	if s := u.ctrl.Session(); s.Mode != paint.Eraser || s.EraserWidth != 9 {
		t.Errorf("mode %v eraser width %d", s.Mode, s.EraserWidth)
	}
}

func TestPointerEvent(t *testing.T) {
	view := image.Rect(40, 24, 240, 124)
	tests := []struct {
		in   mouse.Event
		ok   bool
		want viewport.PointerEvent
	}{
		{
			in:   mouse.Event{X: 50, Y: 34, Button: mouse.ButtonLeft, Direction: mouse.DirPress},
			ok:   true,
			want: viewport.PointerEvent{Kind: viewport.Press, Button: viewport.Primary, Pos: vec.Vec2{X: 10, Y: 10}},
		},
		{
			in:   mouse.Event{X: 40, Y: 24, Button: mouse.ButtonMiddle, Direction: mouse.DirRelease},
			ok:   true,
			want: viewport.PointerEvent{Kind: viewport.Release, Button: viewport.Secondary},
		},
		{
			in:   mouse.Event{X: 41, Y: 25, Direction: mouse.DirNone},
			ok:   true,
			want: viewport.PointerEvent{Kind: viewport.Move, Pos: vec.Vec2{X: 1, Y: 1}},
		},
		{
			in:   mouse.Event{X: 40, Y: 24, Button: mouse.ButtonWheelDown, Direction: mouse.DirStep},
			ok:   true,
			want: viewport.PointerEvent{Kind: viewport.Wheel, Ticks: -1},
		},
		{
			in: mouse.Event{X: 40, Y: 24, Button: mouse.ButtonWheelUp, Direction: mouse.DirRelease},
		},
	}
	for i, tt := range tests {
		got, ok := pointerEvent(tt.in, view)
		if ok != tt.ok {
			t.Errorf("%d: ok = %v", i, ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("%d: got %+v, want %+v", i, got, tt.want)
		}
	}
}

func TestStatus(t *testing.T) {
	u, _ := newTestUI(t)
	if got := u.status(); got != "no image | pen 5 | uncalibrated" {
		t.Errorf("status %q", got)
	}
	loadImage(u, filepath.Join("x", "b.jpeg"))
	u.handleKey(press('h', key.ModControl))
	if got := u.status(); !strings.HasPrefix(got, "b.jpeg | pen 5 | uncalibrated | mask 0.0%") {
		t.Errorf("status %q", got)
	}
}

func TestFrameComposesLayers(t *testing.T) {
	u, _ := newTestUI(t)
	loadImage(u, "a.jpeg")
	dst := image.NewRGBA(image.Rect(0, 0, toolbarWidth+200, statusHeight+100+bottomHeight))
	drawScene(dst, u, color.NRGBA{R: 48, G: 76, B: 98, A: 255}, nil, -1, -1)
	got := dst.RGBAAt(toolbarWidth+100, statusHeight+50)
	if got.R != 0x80 || got.G != 0x80 {
		t.Errorf("display pixel %+v", got)
	}
}

func TestReleaseOutsideViewEndsStroke(t *testing.T) {
	u, _ := newTestUI(t)
	loadImage(u, "a.jpeg")
	u.handleKey(press('h', key.ModControl))
	view := image.Rect(toolbarWidth, statusHeight, toolbarWidth+200, statusHeight+100)
	at := func(x, y int, b mouse.Button, d mouse.Direction) mouse.Event {
		return mouse.Event{X: float32(x), Y: float32(y), Button: b, Direction: d}
	}

	down := at(view.Min.X+20, view.Min.Y+20, mouse.ButtonLeft, mouse.DirPress)
	if u.capture(down, view) {
		t.Fatal("press in the view taken before hit-testing")
	}
	ev, _ := pointerEvent(down, view)
	u.pointer(ev)
	// Drag over the toolbar and let go there.
	if !u.capture(at(2, view.Min.Y+20, mouse.ButtonNone, mouse.DirNone), view) {
		t.Fatal("move during a stroke not forwarded")
	}
	if !u.capture(at(2, view.Min.Y+20, mouse.ButtonLeft, mouse.DirRelease), view) {
		t.Fatal("release over the toolbar not forwarded")
	}
	if u.ctrl.Tracking() {
		t.Fatal("stroke still active after release")
	}

	before := u.ctrl.Coverage()
	hover := at(view.Min.X+150, view.Min.Y+80, mouse.ButtonNone, mouse.DirNone)
	if u.capture(hover, view) {
		t.Fatal("plain hover consumed")
	}
	ev, _ = pointerEvent(hover, view)
	u.pointer(ev)
	if got := u.ctrl.Coverage(); got != before {
		t.Fatalf("hover painted: coverage %v, was %v", got, before)
	}
}

func TestReleaseOutsideViewEndsPan(t *testing.T) {
	u, _ := newTestUI(t)
	loadImage(u, "a.jpeg")
	view := image.Rect(toolbarWidth, statusHeight, toolbarWidth+200, statusHeight+100)
	ev, _ := pointerEvent(mouse.Event{X: float32(view.Min.X + 50), Y: float32(view.Min.Y + 50), Button: mouse.ButtonRight, Direction: mouse.DirPress}, view)
	u.pointer(ev)
	if !u.ctrl.Tracking() {
		t.Fatal("pan did not start")
	}
	u.capture(mouse.Event{X: 5, Y: 5, Button: mouse.ButtonRight, Direction: mouse.DirRelease}, view)
	if u.ctrl.Tracking() {
		t.Fatal("pan still active after release over the status bar")
	}
}

func TestCaptureSavedTwice(t *testing.T) {
	u, _ := newTestUI(t)
	dir := t.TempDir()
	u.saveDir = dir
	u.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	loadImage(u, "")
	u.handleKey(press('h', key.ModControl))
	click(u, 20, 20)
	u.handleKey(press('s', key.ModControl))

	maskPath := filepath.Join(dir, "capture-20260101-000000.png")
	marked := func() bool {
		t.Helper()
		img, err := mask.Load(maskPath)
		if err != nil {
			t.Fatalf("load saved mask: %v", err)
		}
		r, _, _, _ := img.At(150, 80).RGBA()
		return r == 0xffff
	}
	if _, err := os.Stat(filepath.Join(dir, "capture-20260101-000000.jpeg")); err != nil {
		t.Fatalf("capture not written: %v", err)
	}
	if marked() {
		t.Fatal("second stroke present before it was drawn")
	}

	click(u, 150, 80)
	u.handleKey(press('s', key.ModControl))
	if !strings.Contains(u.message, "capture-20260101-000000.png already exists") {
		t.Fatalf("overwrite not asked for the mask: %q", u.message)
	}
	u.handleKey(press('s', key.ModControl))
	if u.message != "saved "+maskPath {
		t.Fatalf("message %q", u.message)
	}
	if !marked() {
		t.Fatal("mask not rewritten on the confirmed save")
	}
}
