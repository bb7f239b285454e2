package config

import (
	"fmt"
	"image/color"
	"strings"
)

// Viewport holds the canvas settings.
type Viewport struct {
	Width    int
	Height   int
	Backdrop color.NRGBA
	ZoomStep float64
}

// Brush holds the painting defaults.
type Brush struct {
	PenWidth    int
	EraserWidth int
	MaxWidth    int
	PenColor    color.NRGBA
}

// Ruler holds marker styling and the physical unit.
type Ruler struct {
	Unit       string
	LineColor  color.NRGBA
	PointColor color.NRGBA
	LineWidth  int
	PointWidth int
}

// Model describes the segmentation network.
type Model struct {
	Path        string
	InputWidth  int
	InputHeight int
	Threshold   float64
}

// Train describes the external training command and its dataset layout.
type Train struct {
	Command  string
	Dataset  string
	TrainSet string
	ValSet   string
	Output   string
	LossCSV  string
}

// Notify holds notification settings.
type Notify struct {
	Save   bool
	Detect bool
	Train  bool
	Copy   bool
}

// Config holds the application configuration.
type Config struct {
	SaveDir  string
	Viewport Viewport
	Brush    Brush
	Ruler    Ruler
	Model    Model
	Train    Train
	Notify   Notify
}

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		Viewport: Viewport{
			Width:    800,
			Height:   600,
			Backdrop: color.NRGBA{R: 48, G: 76, B: 98, A: 255},
			ZoomStep: 1.1,
		},
		Brush: Brush{
			PenWidth:    5,
			EraserWidth: 10,
			MaxWidth:    20,
			PenColor:    color.NRGBA{R: 255, G: 255, B: 255, A: 153},
		},
		Ruler: Ruler{
			Unit:       "mm",
			LineColor:  color.NRGBA{B: 0x80, A: 255},
			PointColor: color.NRGBA{B: 0xff, A: 255},
			LineWidth:  2,
			PointWidth: 4,
		},
		Model: Model{
			Path:        "model.onnx",
			InputWidth:  480,
			InputHeight: 320,
			Threshold:   0.5,
		},
		Train: Train{
			Dataset:  "dataset",
			TrainSet: "set1",
			ValSet:   "set2",
			Output:   "model_retrain.onnx",
			LossCSV:  "loss_epoch.csv",
		},
	}
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	if c.SaveDir != "" {
		fmt.Fprintf(&sb, "save_dir = %s\n", c.SaveDir)
		sb.WriteString("\n")
	}

	sb.WriteString("[viewport]\n")
	fmt.Fprintf(&sb, "width = %d\n", c.Viewport.Width)
	fmt.Fprintf(&sb, "height = %d\n", c.Viewport.Height)
	fmt.Fprintf(&sb, "backdrop = %s\n", toHex(c.Viewport.Backdrop))
	fmt.Fprintf(&sb, "zoom_step = %g\n", c.Viewport.ZoomStep)
	sb.WriteString("\n")

	sb.WriteString("[brush]\n")
	fmt.Fprintf(&sb, "pen_width = %d\n", c.Brush.PenWidth)
	fmt.Fprintf(&sb, "eraser_width = %d\n", c.Brush.EraserWidth)
	fmt.Fprintf(&sb, "max_width = %d\n", c.Brush.MaxWidth)
	fmt.Fprintf(&sb, "pen_color = %s\n", toHex(c.Brush.PenColor))
	sb.WriteString("\n")

	sb.WriteString("[ruler]\n")
	fmt.Fprintf(&sb, "unit = %s\n", c.Ruler.Unit)
	fmt.Fprintf(&sb, "line_color = %s\n", toHex(c.Ruler.LineColor))
	fmt.Fprintf(&sb, "point_color = %s\n", toHex(c.Ruler.PointColor))
	fmt.Fprintf(&sb, "line_width = %d\n", c.Ruler.LineWidth)
	fmt.Fprintf(&sb, "point_width = %d\n", c.Ruler.PointWidth)
	sb.WriteString("\n")

	sb.WriteString("[model]\n")
	fmt.Fprintf(&sb, "path = %s\n", c.Model.Path)
	fmt.Fprintf(&sb, "input_width = %d\n", c.Model.InputWidth)
	fmt.Fprintf(&sb, "input_height = %d\n", c.Model.InputHeight)
	fmt.Fprintf(&sb, "threshold = %g\n", c.Model.Threshold)
	sb.WriteString("\n")

	sb.WriteString("[train]\n")
	if c.Train.Command != "" {
		fmt.Fprintf(&sb, "command = %s\n", c.Train.Command)
	}
	fmt.Fprintf(&sb, "dataset = %s\n", c.Train.Dataset)
	fmt.Fprintf(&sb, "train_set = %s\n", c.Train.TrainSet)
	fmt.Fprintf(&sb, "val_set = %s\n", c.Train.ValSet)
	fmt.Fprintf(&sb, "output = %s\n", c.Train.Output)
	fmt.Fprintf(&sb, "loss_csv = %s\n", c.Train.LossCSV)
	sb.WriteString("\n")

	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "save = %v\n", c.Notify.Save)
	fmt.Fprintf(&sb, "detect = %v\n", c.Notify.Detect)
	fmt.Fprintf(&sb, "train = %v\n", c.Notify.Train)
	fmt.Fprintf(&sb, "copy = %v\n", c.Notify.Copy)

	return sb.String()
}

func toHex(c color.NRGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}
