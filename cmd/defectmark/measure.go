package main

import (
	"fmt"
	"image"
	"image/draw"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"seehuhn.de/go/geom/vec"

	"github.com/example/defectmark/internal/appstate"
	"github.com/example/defectmark/internal/mask"
	"github.com/example/defectmark/internal/raster"
	"github.com/example/defectmark/internal/ruler"
)

var measureOpts struct {
	calibrate string
	length    float64
	measure   []string
	unit      string
	image     string
	output    string
}

var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Measure distances against a calibrated line",
	Long: `Calibrate the scale with a line of known length, then measure one or more
lines in the same units. Lines are given in image pixels as x0,y0,x1,y1.
With --image and --output the markers are drawn over the image and saved.`,
	Args: cobra.NoArgs,
	RunE: runMeasure,
}

func init() {
	rootCmd.AddCommand(measureCmd)

	f := measureCmd.Flags()
	f.StringVar(&measureOpts.calibrate, "calibrate", "", "calibration line x0,y0,x1,y1")
	f.Float64Var(&measureOpts.length, "length", 0, "physical length of the calibration line")
	f.StringArrayVar(&measureOpts.measure, "measure", nil, "line to measure x0,y0,x1,y1 (repeatable)")
	f.StringVar(&measureOpts.unit, "unit", "", "unit of --length (default from config)")
	f.StringVar(&measureOpts.image, "image", "", "image the lines refer to")
	f.StringVar(&measureOpts.output, "output", "", "write the image with markers to this file")
	measureCmd.MarkFlagRequired("calibrate")
	measureCmd.MarkFlagRequired("length")
	measureCmd.MarkFlagsRequiredTogether("image", "output")
}

// parseLine reads "x0,y0,x1,y1".
func parseLine(s string) ([2]vec.Vec2, error) {
	var line [2]vec.Vec2
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return line, fmt.Errorf("line %q: want x0,y0,x1,y1", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return line, fmt.Errorf("line %q: %w", s, err)
		}
		v[i] = f
	}
	line[0] = vec.Vec2{X: v[0], Y: v[1]}
	line[1] = vec.Vec2{X: v[2], Y: v[3]}
	return line, nil
}

// markerSize is large enough to hold every endpoint.
func markerSize(lines [][2]vec.Vec2) image.Point {
	var size image.Point
	for _, l := range lines {
		for _, p := range l {
			size.X = max(size.X, int(p.X)+1)
			size.Y = max(size.Y, int(p.Y)+1)
		}
	}
	return size
}

func runMeasure(cmd *cobra.Command, _ []string) error {
	calib, err := parseLine(measureOpts.calibrate)
	if err != nil {
		return err
	}
	lines := [][2]vec.Vec2{calib}
	for _, s := range measureOpts.measure {
		l, err := parseLine(s)
		if err != nil {
			return err
		}
		lines = append(lines, l)
	}

	style := appstate.RulerStyleFromConfig(cfg)
	if measureOpts.unit != "" {
		style.Unit = measureOpts.unit
	}

	var src image.Image
	size := markerSize(lines)
	if measureOpts.image != "" {
		src, err = mask.Load(measureOpts.image)
		if err != nil {
			return err
		}
		size = src.Bounds().Size()
	}
	markers := raster.New(size, raster.Transparent)
	// Each workflow clears the marker layer, so the saved image keeps an
	// accumulated copy.
	var acc *image.NRGBA
	if src != nil {
		acc = image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
		draw.Draw(acc, acc.Bounds(), src, src.Bounds().Min, draw.Src)
	}
	keep := func() {
		if acc != nil {
			draw.Draw(acc, acc.Bounds(), markers.Image(), image.Point{}, draw.Over)
		}
	}

	out := cmd.OutOrStdout()
	e := ruler.New(style)
	if err := e.Start(ruler.Calibrate); err != nil {
		return err
	}
	for _, p := range calib {
		if _, err := e.Press(p, markers); err != nil {
			return err
		}
	}
	res, err := e.SubmitLength(measureOpts.length)
	if err != nil {
		return err
	}
	keep()
	fmt.Fprintln(out, res)

	for _, l := range lines[1:] {
		if err := e.Start(ruler.Measure); err != nil {
			return err
		}
		var r *ruler.Result
		for _, p := range l {
			if r, err = e.Press(p, markers); err != nil {
				return err
			}
		}
		keep()
		fmt.Fprintln(out, r)
	}

	if acc != nil {
		if err := mask.SaveImage(measureOpts.output, acc, confirmer(cmd)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "saved %s\n", measureOpts.output)
	}
	return nil
}
