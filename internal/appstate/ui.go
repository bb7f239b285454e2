package appstate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode"

	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"
	"seehuhn.de/go/geom/vec"

	"github.com/example/defectmark/internal/clipboard"
	"github.com/example/defectmark/internal/mask"
	"github.com/example/defectmark/internal/notify"
	"github.com/example/defectmark/internal/paint"
	"github.com/example/defectmark/internal/render"
	"github.com/example/defectmark/internal/ruler"
	"github.com/example/defectmark/internal/segment"
	"github.com/example/defectmark/internal/training"
	"github.com/example/defectmark/internal/viewport"
)

const messageDuration = 2 * time.Second

// detectDone and trainDone carry background results back to the event loop.
type detectDone struct{ segment.Result }

type trainDone struct{ training.Outcome }

// ui holds everything the event loop mutates apart from the window itself.
type ui struct {
	ctrl     *viewport.Controller
	notifier *notify.Notifier
	detector *segment.Runner
	trainer  training.Runner
	job      training.Job
	plotPath string
	saveDir  string

	send      func(any)
	now       func() time.Time
	copyImage func(image.Image) error
	copyText  func(string) error

	message      string
	messageUntil time.Time
	// pending names an action waiting for its confirming second press.
	pending         string
	textInputActive bool
	textInput       string
	captureName     string
	last            *ruler.Result
	quit            bool

	actions        map[string]func()
	keyboardAction map[KeyShortcut]string
	shortcuts      []Shortcut
}

func newUI(ctrl *viewport.Controller, send func(any)) *ui {
	u := &ui{
		ctrl:      ctrl,
		send:      send,
		now:       time.Now,
		copyImage: clipboard.WriteMask,
		copyText:  clipboard.WriteMeasurement,
	}
	u.configure()
	return u
}

func (u *ui) register(name string, keys KeyboardShortcuts, fn func()) {
	u.actions[name] = fn
	if keys != nil {
		for _, sc := range keys.KeyboardShortcuts() {
			u.keyboardAction[sc] = name
		}
	}
}

func (u *ui) configure() {
	u.actions = map[string]func(){}
	u.keyboardAction = map[KeyShortcut]string{}

	u.register("calibrate", shortcutList{{Rune: 'c'}}, func() { u.startRuler(ruler.Calibrate) })
	u.register("measure", shortcutList{{Rune: 'm'}}, func() { u.startRuler(ruler.Measure) })
	u.register("pen", shortcutList{{Rune: 'b'}}, func() {
		u.ctrl.SelectMode(paint.Pen)
		u.setMessage(fmt.Sprintf("pen, width %d", u.ctrl.Session().Width()))
	})
	u.register("eraser", shortcutList{{Rune: 'e'}}, func() {
		u.ctrl.SelectMode(paint.Eraser)
		u.setMessage(fmt.Sprintf("eraser, width %d", u.ctrl.Session().Width()))
	})
	u.register("thinner", shortcutList{{Rune: '['}}, func() { u.ctrl.SetWidth(u.ctrl.Session().Width() - 1) })
	u.register("thicker", shortcutList{{Rune: ']'}}, func() { u.ctrl.SetWidth(u.ctrl.Session().Width() + 1) })
	u.register("annotate", shortcutList{{Rune: 'h', Modifiers: key.ModControl}}, func() {
		if err := u.ctrl.Annotate(); err != nil {
			u.report(err)
			return
		}
		u.setMessage("annotating")
	})
	u.register("revise", shortcutList{{Rune: 'r'}, {Rune: 'j', Modifiers: key.ModControl}}, func() {
		on, err := u.ctrl.Revise()
		if err != nil {
			u.report(err)
			return
		}
		if on {
			u.setMessage("revising mask")
		} else {
			u.setMessage("revision stopped")
		}
	})
	u.register("detect", shortcutList{{Rune: 'g', Modifiers: key.ModControl}}, u.detect)
	u.register("train", shortcutList{{Rune: 't', Modifiers: key.ModControl}}, u.train)
	u.register("save", shortcutList{{Rune: 's', Modifiers: key.ModControl}}, u.save)
	u.register("clear", shortcutList{{Rune: 'k', Modifiers: key.ModControl}}, func() {
		if !u.confirmed("clear", "clear all layers?") {
			return
		}
		u.ctrl.Clear()
		u.captureName = ""
		u.last = nil
		u.setMessage("cleared")
	})
	u.register("copy", shortcutList{{Rune: 'c', Modifiers: key.ModControl}}, u.copyMask)
	u.register("copyresult", shortcutList{{Rune: 'c', Modifiers: key.ModControl | key.ModShift}}, u.copyResult)
	u.register("zoomin", shortcutList{{Rune: '+'}, {Rune: '='}}, func() { u.wheel(1) })
	u.register("zoomout", shortcutList{{Rune: '-'}}, func() { u.wheel(-1) })
	u.register("resetview", shortcutList{{Rune: '0'}}, u.ctrl.ResetView)
	u.register("quit", shortcutList{{Rune: 'q'}}, func() { u.quit = true })

	u.shortcuts = []Shortcut{
		{label: "^S:save", action: func() { u.trigger("save") }},
		{label: "^C:copy mask", action: func() { u.trigger("copy") }},
		{label: "^K:clear", action: func() { u.trigger("clear") }},
		{label: "[ ]:width", action: func() { u.trigger("thicker") }},
		{label: "+/-:zoom", action: func() { u.trigger("zoomin") }},
		{label: "0:reset", action: func() { u.trigger("resetview") }},
		{label: "Q:quit", action: func() { u.trigger("quit") }},
	}
}

// trigger runs a named action. Any action other than the one awaiting
// confirmation cancels that confirmation.
func (u *ui) trigger(name string) {
	if u.pending != name {
		u.pending = ""
	}
	if fn, ok := u.actions[name]; ok {
		fn()
	}
}

// confirmed implements press-again confirmation: the first call shows the
// question and returns false, a repeated call for the same action returns
// true.
func (u *ui) confirmed(action, question string) bool {
	if u.pending == action {
		u.pending = ""
		return true
	}
	u.pending = action
	u.setMessage(question + " press again to confirm")
	return false
}

func (u *ui) setMessage(msg string) {
	u.message = msg
	u.messageUntil = u.now().Add(messageDuration)
	log.Print(msg)
}

func (u *ui) messageVisible() bool {
	return u.message != "" && u.now().Before(u.messageUntil)
}

// report turns an error into a status message.
func (u *ui) report(err error) {
	switch {
	case errors.Is(err, mask.ErrDeclined):
		// the confirmation prompt is already showing
	case errors.Is(err, viewport.ErrNoImage):
		u.setMessage("load an image first")
	case errors.Is(err, viewport.ErrNoMask):
		u.setMessage("no mask to revise, annotate or detect first")
	case errors.Is(err, ruler.ErrUncalibrated):
		u.setMessage("no scale added, calibrate first")
	case errors.Is(err, ruler.ErrInvalidLength):
		u.setMessage("length not valid")
	case errors.Is(err, segment.ErrBusy), errors.Is(err, training.ErrBusy):
		u.setMessage(err.Error())
	default:
		u.setMessage(fmt.Sprintf("error: %v", err))
	}
}

func (u *ui) startRuler(m ruler.Mode) {
	if err := u.ctrl.StartRuler(m); err != nil {
		u.report(err)
		return
	}
	u.setMessage("click two points")
}

func (u *ui) wheel(ticks int) {
	w := u.ctrl.WidgetSize()
	centre := vec.Vec2{X: float64(w.X) / 2, Y: float64(w.Y) / 2}
	u.pointer(viewport.PointerEvent{Kind: viewport.Wheel, Pos: centre, Ticks: ticks})
}

// pointer forwards an event to the controller and opens the length prompt
// when a calibration line is finished.
func (u *ui) pointer(ev viewport.PointerEvent) {
	res, err := u.ctrl.HandlePointer(ev)
	if err != nil {
		u.report(err)
		return
	}
	if res != nil {
		u.last = res
		u.setMessage(res.String())
	}
	if _, ok := u.ctrl.PendingLength(); ok && !u.textInputActive {
		u.textInputActive = true
		u.textInput = ""
		u.message = ""
	}
}

// lengthKey edits the calibration length prompt.
func (u *ui) lengthKey(e key.Event) {
	switch e.Code {
	case key.CodeReturnEnter:
		u.textInputActive = false
		v, err := strconv.ParseFloat(u.textInput, 64)
		if err != nil {
			_ = u.ctrl.CancelLength()
			u.report(ruler.ErrInvalidLength)
			return
		}
		res, err := u.ctrl.SubmitLength(v)
		if err != nil {
			u.report(err)
			return
		}
		u.last = res
		u.setMessage(res.String())
		return
	case key.CodeEscape:
		u.textInputActive = false
		u.report(u.ctrl.CancelLength())
		return
	case key.CodeDeleteBackspace:
		if len(u.textInput) > 0 {
			u.textInput = u.textInput[:len(u.textInput)-1]
		}
		return
	}
	if unicode.IsDigit(e.Rune) || e.Rune == '.' {
		u.textInput += string(e.Rune)
	}
}

func (u *ui) handleKey(e key.Event) {
	if e.Direction != key.DirPress {
		return
	}
	if u.textInputActive {
		u.lengthKey(e)
		return
	}
	if name, ok := u.lookup(e); ok {
		u.trigger(name)
		return
	}
	u.pending = ""
}

func (u *ui) lookup(e key.Event) (string, bool) {
	var ks KeyShortcut
	if e.Rune > 0 {
		ks = KeyShortcut{Rune: unicode.ToLower(e.Rune), Modifiers: e.Modifiers}
	} else {
		ks = KeyShortcut{Code: e.Code, Modifiers: e.Modifiers}
	}
	if name, ok := u.keyboardAction[ks]; ok {
		return name, true
	}
	ks.Modifiers &^= key.ModShift
	name, ok := u.keyboardAction[ks]
	return name, ok
}

// capture sends e to the controller when it releases a button or when a
// stroke or pan is under way, wherever the pointer is, so that leaving the
// view never strands a stroke. It reports whether e was consumed.
func (u *ui) capture(e mouse.Event, view image.Rectangle) bool {
	if e.Direction != mouse.DirRelease && !u.ctrl.Tracking() {
		return false
	}
	if ev, ok := pointerEvent(e, view); ok {
		u.pointer(ev)
	}
	return true
}

// pointerEvent converts a shiny mouse event inside view into controller
// coordinates.
func pointerEvent(e mouse.Event, view image.Rectangle) (viewport.PointerEvent, bool) {
	ev := viewport.PointerEvent{
		Pos: vec.Vec2{X: float64(e.X) - float64(view.Min.X), Y: float64(e.Y) - float64(view.Min.Y)},
	}
	switch e.Button {
	case mouse.ButtonWheelUp, mouse.ButtonWheelDown:
		if e.Direction == mouse.DirRelease {
			return ev, false
		}
		ev.Kind = viewport.Wheel
		ev.Ticks = 1
		if e.Button == mouse.ButtonWheelDown {
			ev.Ticks = -1
		}
		return ev, true
	case mouse.ButtonLeft:
		ev.Button = viewport.Primary
	case mouse.ButtonMiddle, mouse.ButtonRight:
		ev.Button = viewport.Secondary
	}
	switch e.Direction {
	case mouse.DirPress:
		ev.Kind = viewport.Press
	case mouse.DirRelease:
		ev.Kind = viewport.Release
	case mouse.DirNone:
		ev.Kind = viewport.Move
	default:
		return ev, false
	}
	return ev, true
}

func (u *ui) detect() {
	if u.detector == nil {
		u.setMessage("no model loaded")
		return
	}
	img, err := u.ctrl.DisplayImage()
	if err != nil {
		u.report(err)
		return
	}
	ch, err := u.detector.Start(context.Background(), img)
	if err != nil {
		u.report(err)
		return
	}
	u.ctrl.SetBusy(true)
	u.setMessage("detecting...")
	go func() {
		for res := range ch {
			u.send(detectDone{res})
		}
	}()
}

func (u *ui) applyDetect(res segment.Result) {
	u.ctrl.SetBusy(false)
	if res.Err != nil {
		u.report(res.Err)
		return
	}
	if err := u.ctrl.ApplyPrediction(res.Overlay); err != nil {
		u.report(err)
		return
	}
	u.setMessage(fmt.Sprintf("mask predicted (%.1f%% annotated)", res.Coverage*100))
	u.notifier.Detected(res.Coverage, res.Overlay)
}

func (u *ui) train() {
	if u.job.Command == "" {
		u.setMessage("no training command configured")
		return
	}
	ch, err := u.trainer.Start(context.Background(), u.job)
	if err != nil {
		u.report(err)
		return
	}
	u.setMessage("training...")
	go func() {
		for out := range ch {
			u.send(trainDone{out})
		}
	}()
}

func (u *ui) applyTrain(out training.Outcome) {
	if out.Err != nil {
		u.report(out.Err)
		return
	}
	summary := out.Report.Summary.String()
	if u.plotPath != "" {
		if err := writePNG(u.plotPath, render.LossPlot(out.Report.Losses, image.Pt(640, 480))); err != nil {
			log.Printf("loss plot: %v", err)
		}
	}
	u.setMessage("training finished: " + summary)
	u.notifier.Trained(summary)
}

// save writes the flattened mask next to the source image, or into the
// save directory when one is configured. A screen capture is written once,
// as JPEG, so the pair can be reloaded. Replacing an existing mask takes a
// second press.
func (u *ui) save() {
	overlay, err := u.ctrl.MaskImage()
	if err != nil {
		u.report(err)
		return
	}
	overwrite := func(string) bool { return true }
	imgPath := u.ctrl.Session().ImagePath
	if imgPath == "" {
		if u.captureName == "" {
			u.captureName = "capture-" + u.now().Format("20060102-150405") + ".jpeg"
		}
		imgPath = filepath.Join(u.saveDir, u.captureName)
		if _, err := os.Stat(imgPath); errors.Is(err, fs.ErrNotExist) {
			disp, err := u.ctrl.DisplayImage()
			if err != nil {
				u.report(err)
				return
			}
			if err := mask.SaveImage(imgPath, disp, overwrite); err != nil {
				u.report(err)
				return
			}
		}
	}
	dir := u.saveDir
	if dir == "" {
		dir = filepath.Dir(imgPath)
	}
	maskPath := filepath.Join(dir, mask.BaseName(imgPath)+".png")
	if filepath.Clean(maskPath) == filepath.Clean(imgPath) {
		u.setMessage("mask would replace the source image, set save_dir")
		return
	}
	if _, err := os.Stat(maskPath); err == nil {
		if !u.confirmed("save", filepath.Base(maskPath)+" already exists. Replace it?") {
			return
		}
	}
	if err := mask.SaveMask(maskPath, overlay, overwrite); err != nil {
		u.report(err)
		return
	}
	u.pending = ""
	u.setMessage("saved " + maskPath)
	u.notifier.Saved(maskPath)
}

func (u *ui) copyMask() {
	overlay, err := u.ctrl.MaskImage()
	if err != nil {
		u.report(err)
		return
	}
	if err := u.copyImage(mask.Flatten(overlay)); err != nil {
		u.setMessage(err.Error())
		return
	}
	u.setMessage("mask copied to clipboard")
	u.notifier.Copied("mask")
}

func (u *ui) copyResult() {
	if u.last == nil {
		u.setMessage("nothing measured yet")
		return
	}
	if err := u.copyText(u.last.String()); err != nil {
		u.setMessage(err.Error())
		return
	}
	u.setMessage("result copied to clipboard")
	u.notifier.Copied("measurement")
}

// status is the text of the status bar.
func (u *ui) status() string {
	s := u.ctrl.Session()
	name := filepath.Base(s.ImagePath)
	if s.ImagePath == "" {
		name = "no image"
		if u.ctrl.HasImage() {
			name = "screen capture"
		}
	}
	scale := "uncalibrated"
	if ppu := u.ctrl.Ruler().PixelsPerUnit; ppu > 0 {
		scale = fmt.Sprintf("%.2f pix/%s", ppu, u.ctrl.RulerStyle().Unit)
	}
	text := fmt.Sprintf("%s | %s %d | %s", name, s.Mode, s.Width(), scale)
	if u.ctrl.HasMask() {
		text += fmt.Sprintf(" | mask %.1f%%", u.ctrl.Coverage()*100)
	}
	if s.Busy {
		text += " | busy"
	}
	return text
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
