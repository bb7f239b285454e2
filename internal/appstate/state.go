// Package appstate runs the annotation window: it feeds shiny events to the
// viewport controller and draws the layer stack with its tool bars.
package appstate

import (
	"image"
	"log"
	"path/filepath"
	"sync"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/example/defectmark/internal/config"
	"github.com/example/defectmark/internal/mask"
	"github.com/example/defectmark/internal/notify"
	"github.com/example/defectmark/internal/ruler"
	"github.com/example/defectmark/internal/segment"
	"github.com/example/defectmark/internal/training"
	"github.com/example/defectmark/internal/viewport"
)

// AppState holds what the window starts with.
type AppState struct {
	Config    *config.Config
	Image     image.Image
	ImagePath string
	Mask      image.Image
	MaskPath  string
	Detector  *segment.Runner
	Notifier  *notify.Notifier
	// Confirm answers the mismatched-mask question for the initial mask.
	Confirm mask.ConfirmFunc

	onClose   func()
	closeOnce sync.Once
}

// Option modifies an AppState during creation.
type Option func(*AppState)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option { return func(a *AppState) { a.Config = cfg } }

// WithImage sets the image shown at start up. path may be empty for
// captures.
func WithImage(img image.Image, path string) Option {
	return func(a *AppState) { a.Image, a.ImagePath = img, path }
}

// WithMask sets a mask to load over the image.
func WithMask(img image.Image, path string) Option {
	return func(a *AppState) { a.Mask, a.MaskPath = img, path }
}

// WithDetector enables detection.
func WithDetector(r *segment.Runner) Option { return func(a *AppState) { a.Detector = r } }

// WithNotifier sets the desktop notifier.
func WithNotifier(n *notify.Notifier) Option { return func(a *AppState) { a.Notifier = n } }

// WithConfirm sets the answer function for the initial mask check.
func WithConfirm(fn mask.ConfirmFunc) Option { return func(a *AppState) { a.Confirm = fn } }

// WithOnClose registers a callback invoked when the window closes.
func WithOnClose(fn func()) Option { return func(a *AppState) { a.onClose = fn } }

// New creates an AppState with the provided options.
func New(opts ...Option) *AppState {
	a := &AppState{Config: config.New()}
	for _, o := range opts {
		o(a)
	}
	if a.Config == nil {
		a.Config = config.New()
	}
	return a
}

// SessionFromConfig builds the editing session from the configuration.
func SessionFromConfig(cfg *config.Config) viewport.Session {
	s := viewport.DefaultSession()
	s.PenWidth = cfg.Brush.PenWidth
	s.EraserWidth = cfg.Brush.EraserWidth
	s.MaxWidth = cfg.Brush.MaxWidth
	s.PenColor = cfg.Brush.PenColor
	s.Backdrop = cfg.Viewport.Backdrop
	s.ZoomStep = cfg.Viewport.ZoomStep
	return s
}

// RulerStyleFromConfig builds the marker style from the configuration.
func RulerStyleFromConfig(cfg *config.Config) ruler.Style {
	return ruler.Style{
		PointColor: cfg.Ruler.PointColor,
		PointWidth: cfg.Ruler.PointWidth,
		LineColor:  cfg.Ruler.LineColor,
		LineWidth:  cfg.Ruler.LineWidth,
		Unit:       cfg.Ruler.Unit,
	}
}

// TrainingJob builds the training job from the configuration.
func TrainingJob(cfg *config.Config) training.Job {
	return training.Job{
		Command:  cfg.Train.Command,
		Dataset:  cfg.Train.Dataset,
		TrainSet: cfg.Train.TrainSet,
		ValSet:   cfg.Train.ValSet,
		Output:   cfg.Train.Output,
		LossCSV:  cfg.Train.LossCSV,
	}
}

// PlotPath is where the loss plot of a training run is written: next to
// the loss log.
func PlotPath(cfg *config.Config) string {
	if cfg.Train.LossCSV == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(cfg.Train.LossCSV), "loss_epoch.png")
}

func (a *AppState) notifyClose() {
	a.closeOnce.Do(func() {
		if a.onClose != nil {
			a.onClose()
		}
	})
}

// Run executes the UI loop using shiny's driver.
func (a *AppState) Run() { driver.Main(a.Main) }

func (a *AppState) Main(s screen.Screen) {
	cfg := a.Config
	fitToolbar()
	width := cfg.Viewport.Width + toolbarWidth
	height := cfg.Viewport.Height + statusHeight + bottomHeight
	w, err := s.NewWindow(&screen.NewWindowOptions{Width: width, Height: height, Title: "defectmark"})
	if err != nil {
		log.Fatalf("new window: %v", err)
	}
	defer w.Release()
	defer a.notifyClose()

	ctrl := viewport.New(
		viewport.WithSession(SessionFromConfig(cfg)),
		viewport.WithRulerStyle(RulerStyleFromConfig(cfg)),
		viewport.WithSize(viewRect(width, height).Size()),
	)
	u := newUI(ctrl, func(v any) { w.Send(v) })
	u.notifier = a.Notifier
	u.detector = a.Detector
	u.job = TrainingJob(cfg)
	u.saveDir = cfg.SaveDir
	u.plotPath = PlotPath(cfg)

	if a.Image != nil {
		ctrl.LoadImage(a.Image, a.ImagePath)
		if a.Mask != nil {
			if err := ctrl.LoadMask(a.Mask, a.MaskPath, a.Confirm); err != nil {
				u.report(err)
			} else {
				u.setMessage("loaded " + filepath.Base(a.MaskPath))
			}
		}
	}

	buttons := newToolButtons(u.trigger, func(action string) bool {
		sess := ctrl.Session()
		switch action {
		case "pen":
			return sess.Mode.String() == "pen"
		case "eraser":
			return sess.Mode.String() == "eraser"
		case "calibrate", "measure":
			return ctrl.Ruler().Mode.String() == action
		case "annotate", "revise":
			l := ctrl.Layer(viewport.AnnotationLayer)
			return l != nil && l.Annotating()
		case "detect":
			return sess.Busy
		}
		return false
	})
	hoverTool, hoverShortcut := -1, -1

	for {
		e := w.NextEvent()
		switch e := e.(type) {
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				return
			}
		case size.Event:
			width, height = e.WidthPx, e.HeightPx
			ctrl.Resize(viewRect(width, height).Size())
			w.Send(paint.Event{})
		case paint.Event:
			drawFrame(s, w, width, height, u, buttons, hoverTool, hoverShortcut)
		case detectDone:
			u.applyDetect(e.Result)
			w.Send(paint.Event{})
		case trainDone:
			u.applyTrain(e.Outcome)
			w.Send(paint.Event{})
		case key.Event:
			u.handleKey(e)
			if u.quit {
				return
			}
			w.Send(paint.Event{})
		case mouse.Event:
			p := image.Point{int(e.X), int(e.Y)}
			if u.messageVisible() && e.Direction == mouse.DirPress && !u.textInputActive {
				u.messageUntil = u.now()
			}
			if u.capture(e, viewRect(width, height)) {
				w.Send(paint.Event{})
				continue
			}
			if p.Y >= height-bottomHeight {
				hoverShortcut = -1
				for i := range u.shortcuts {
					if p.In(u.shortcuts[i].rect) {
						hoverShortcut = i
						if e.Button == mouse.ButtonLeft && e.Direction == mouse.DirPress {
							u.shortcuts[i].Activate()
						}
						break
					}
				}
				if u.quit {
					return
				}
				w.Send(paint.Event{})
				continue
			}
			if p.X < toolbarWidth && p.Y >= statusHeight {
				hoverTool = -1
				for i, cb := range buttons {
					if p.In(cb.Rect()) {
						hoverTool = i
						if e.Button == mouse.ButtonLeft && e.Direction == mouse.DirPress {
							cb.Activate()
						}
						break
					}
				}
				w.Send(paint.Event{})
				continue
			}
			hoverTool, hoverShortcut = -1, -1
			if p.Y < statusHeight || u.textInputActive {
				continue
			}
			if ev, ok := pointerEvent(e, viewRect(width, height)); ok {
				u.pointer(ev)
				if ctrl.Stack().Dirty() || ev.Kind != viewport.Move {
					w.Send(paint.Event{})
				}
			}
		}
	}
}
