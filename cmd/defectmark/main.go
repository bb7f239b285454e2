package main

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/defectmark/internal/config"
	"github.com/example/defectmark/internal/mask"
	"github.com/example/defectmark/internal/notify"
	"github.com/example/defectmark/internal/segment"
	"github.com/example/defectmark/internal/segment/dnn"
)

var (
	version = "dev"
	commit  = ""
	date    = ""

	configPath string
	assumeYes  bool
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "defectmark",
	Short: "Annotate, measure and detect defects in inspection images",
	Long: `defectmark paints defect masks over inspection images, calibrates a
ruler against a known length to measure features, runs a segmentation
model to predict masks and retrains that model on a labelled dataset.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "configuration file to use")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to every confirmation")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.NewLoader(version, configPath).Load()
	if err != nil {
		// config save may create the file named by --config.
		if cmd != configSaveCmd || !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		c = config.New()
	}
	cfg = c
	return nil
}

// confirmer asks on stderr and reads y/N from the command's input.
func confirmer(cmd *cobra.Command) mask.ConfirmFunc {
	in := bufio.NewReader(cmd.InOrStdin())
	return func(question string) bool {
		if assumeYes {
			return true
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", question)
		line, _ := in.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	}
}

func newNotifier(c *config.Config) *notify.Notifier {
	n := notify.New()
	n.Enable(notify.EventSave, c.Notify.Save)
	n.Enable(notify.EventDetect, c.Notify.Detect)
	n.Enable(notify.EventTrain, c.Notify.Train)
	n.Enable(notify.EventCopy, c.Notify.Copy)
	return n
}

// openDetector loads the ONNX model at path and applies the model settings.
// The returned close function releases the network.
func openDetector(path string, c *config.Config) (*segment.Detector, func(), error) {
	net, err := dnn.Open(path)
	if err != nil {
		return nil, nil, err
	}
	d := segment.NewDetector(net)
	d.Input = image.Pt(c.Model.InputWidth, c.Model.InputHeight)
	d.Threshold = c.Model.Threshold
	d.Color = c.Brush.PenColor
	return d, func() { net.Close() }, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
