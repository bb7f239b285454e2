package render

import (
	"image"
	"testing"

	"github.com/example/defectmark/internal/training"
)

func TestLossPlotDrawsBothCurves(t *testing.T) {
	epochs := []training.Epoch{
		{Epoch: 1, Train: 1.0, Val: 0.9},
		{Epoch: 2, Train: 0.6, Val: 0.7},
		{Epoch: 3, Train: 0.2, Val: 0.5},
	}
	img := LossPlot(epochs, image.Pt(320, 240))
	if img.Bounds().Size() != image.Pt(320, 240) {
		t.Fatalf("size %v", img.Bounds())
	}
	var train, val int
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			switch img.NRGBAAt(x, y) {
			case TrainColor:
				train++
			case ValColor:
				val++
			}
		}
	}
	if train < 100 || val < 100 {
		t.Errorf("curves too short: train=%d val=%d", train, val)
	}
}

func TestLossPlotTinyCanvas(t *testing.T) {
	img := LossPlot(nil, image.Pt(10, 10))
	if img.Bounds().Size() != image.Pt(10, 10) {
		t.Fatalf("size %v", img.Bounds())
	}
}
