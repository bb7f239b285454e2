package main

import (
	"fmt"
	"image"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/defectmark/internal/appstate"
	"github.com/example/defectmark/internal/mask"
	"github.com/example/defectmark/internal/render"
	"github.com/example/defectmark/internal/training"
)

var trainOpts struct {
	dataset string
	command string
	plot    string
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Retrain the segmentation model on the dataset",
	Long: `Run the configured training command over the dataset. The command finds
the training and validation folders, the model output and the loss log
through DEFECTMARK_TRAIN_DIR, DEFECTMARK_VAL_DIR, DEFECTMARK_OUTPUT and
DEFECTMARK_LOSS_CSV. The loss log is summarised and plotted afterwards.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	f := trainCmd.Flags()
	f.StringVar(&trainOpts.dataset, "dataset", "", "dataset directory (default from config)")
	f.StringVar(&trainOpts.command, "command", "", "training command (default from config)")
	f.StringVar(&trainOpts.plot, "plot", "", "loss plot PNG (default next to the loss log)")
}

func runTrain(cmd *cobra.Command, _ []string) error {
	job := appstate.TrainingJob(cfg)
	if trainOpts.dataset != "" {
		job.Dataset = trainOpts.dataset
	}
	if trainOpts.command != "" {
		job.Command = trainOpts.command
	}
	job.Stdout = cmd.OutOrStdout()
	job.Stderr = cmd.ErrOrStderr()

	rep, err := training.Run(cmd.Context(), job)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "trained on %d pairs, validated on %d in %s\n", len(rep.Train), len(rep.Val), rep.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "model: %s\n", rep.Model)
	fmt.Fprintln(out, rep.Summary)

	plot := trainOpts.plot
	if plot == "" {
		plot = appstate.PlotPath(cfg)
	}
	if plot != "" {
		img := render.LossPlot(rep.Losses, image.Pt(640, 480))
		if err := mask.SaveImage(plot, img, confirmer(cmd)); err != nil {
			return err
		}
		fmt.Fprintf(out, "plot: %s\n", plot)
	}
	newNotifier(cfg).Trained(rep.Summary.String())
	return nil
}
