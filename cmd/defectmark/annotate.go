package main

import (
	"errors"
	"fmt"
	"image"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/defectmark/internal/appstate"
	"github.com/example/defectmark/internal/capture"
	"github.com/example/defectmark/internal/mask"
	"github.com/example/defectmark/internal/segment"
)

var annotateOpts struct {
	image      string
	fromScreen bool
	mask       string
	model      string
	output     string
}

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Open the annotation window",
	Long: `Open an image, or a capture of the desktop, in the annotation window.
An existing mask can be laid over it for revision. When a model is available
ctrl+g predicts a mask for the displayed image.`,
	Args: cobra.NoArgs,
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)

	f := annotateCmd.Flags()
	f.StringVar(&annotateOpts.image, "image", "", "image to annotate")
	f.BoolVar(&annotateOpts.fromScreen, "from-screen", false, "annotate a capture of the desktop")
	f.StringVar(&annotateOpts.mask, "mask", "", "mask to load over the image")
	f.StringVar(&annotateOpts.model, "model", "", "ONNX segmentation model (default from config)")
	f.StringVar(&annotateOpts.output, "output", "", "directory masks are saved to (default from config)")
	annotateCmd.MarkFlagsMutuallyExclusive("image", "from-screen")
	annotateCmd.MarkFlagsOneRequired("image", "from-screen")
}

func runAnnotate(cmd *cobra.Command, _ []string) error {
	var (
		img  image.Image
		path string
		err  error
	)
	if annotateOpts.fromScreen {
		img, err = capture.Screen(false)
		if err != nil {
			return fmt.Errorf("capture screen: %w", err)
		}
	} else {
		path = annotateOpts.image
		img, err = mask.Load(path)
		if err != nil {
			return err
		}
	}
	if annotateOpts.output != "" {
		cfg.SaveDir = annotateOpts.output
	}

	opts := []appstate.Option{
		appstate.WithConfig(cfg),
		appstate.WithImage(img, path),
		appstate.WithNotifier(newNotifier(cfg)),
		appstate.WithConfirm(confirmer(cmd)),
	}
	if annotateOpts.mask != "" {
		m, err := mask.Load(annotateOpts.mask)
		if err != nil {
			return err
		}
		opts = append(opts, appstate.WithMask(m, annotateOpts.mask))
	}

	modelPath := annotateOpts.model
	if modelPath == "" {
		modelPath = cfg.Model.Path
	}
	det, closeModel, err := openDetector(modelPath, cfg)
	switch {
	case err == nil:
		defer closeModel()
		opts = append(opts, appstate.WithDetector(segment.NewRunner(det)))
	case annotateOpts.model != "":
		return err
	case errors.Is(err, os.ErrNotExist):
	default:
		log.Printf("detection disabled: %v", err)
	}

	appstate.New(opts...).Run()
	return nil
}
