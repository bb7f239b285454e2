package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/defectmark/internal/mask"
)

var detectOpts struct {
	image  string
	model  string
	output string
	force  bool
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Predict a defect mask for an image",
	Long: `Run the segmentation model on an image and save the predicted mask as a
PNG next to it, or to --output.`,
	Args: cobra.NoArgs,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	f := detectCmd.Flags()
	f.StringVar(&detectOpts.image, "image", "", "image to run detection on")
	f.StringVar(&detectOpts.model, "model", "", "ONNX segmentation model (default from config)")
	f.StringVar(&detectOpts.output, "output", "", "mask file to write (default: image name with .png)")
	f.BoolVar(&detectOpts.force, "force", false, "replace an existing mask without asking")
	detectCmd.MarkFlagRequired("image")
}

func runDetect(cmd *cobra.Command, _ []string) error {
	img, err := mask.Load(detectOpts.image)
	if err != nil {
		return err
	}
	modelPath := detectOpts.model
	if modelPath == "" {
		modelPath = cfg.Model.Path
	}
	det, closeModel, err := openDetector(modelPath, cfg)
	if err != nil {
		return err
	}
	defer closeModel()

	overlay, err := det.Detect(cmd.Context(), img)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	coverage := mask.Coverage(overlay)

	out := detectOpts.output
	if out == "" {
		out = mask.PairedPath(detectOpts.image)
	}
	if out == detectOpts.image {
		return fmt.Errorf("mask would replace the source image %s, use --output", out)
	}
	confirm := confirmer(cmd)
	if detectOpts.force {
		confirm = func(string) bool { return true }
	}
	if err := mask.SaveMask(out, overlay, confirm); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %.1f%% annotated\n", out, coverage*100)
	newNotifier(cfg).Detected(coverage, overlay)
	return nil
}
