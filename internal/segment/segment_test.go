package segment

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"
)

// halfModel marks the left half of its input as foreground.
type halfModel struct {
	got   image.Point
	block chan struct{}
}

func (m *halfModel) Predict(ctx context.Context, img *image.Gray) (*ProbabilityMap, error) {
	if m.block != nil {
		<-m.block
	}
	b := img.Bounds()
	m.got = b.Size()
	pm := &ProbabilityMap{Width: b.Dx(), Height: b.Dy(), P: make([]float32, b.Dx()*b.Dy())}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx()/2; x++ {
			pm.P[y*b.Dx()+x] = 0.9
		}
	}
	return pm, nil
}

func (m *halfModel) Close() error { return nil }

type badModel struct{}

func (badModel) Predict(context.Context, *image.Gray) (*ProbabilityMap, error) {
	return &ProbabilityMap{Width: 2, Height: 2, P: make([]float32, 4)}, nil
}

func (badModel) Close() error { return nil }

func TestDetectScalesBackToSource(t *testing.T) {
	m := &halfModel{}
	d := NewDetector(m)
	src := image.NewRGBA(image.Rect(10, 10, 110, 60))
	overlay, err := d.Detect(context.Background(), src)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if m.got != image.Pt(480, 320) {
		t.Fatalf("model input %v", m.got)
	}
	if overlay.Bounds() != image.Rect(0, 0, 100, 50) {
		t.Fatalf("overlay bounds %v", overlay.Bounds())
	}
	if got := overlay.NRGBAAt(10, 25); got != d.Color {
		t.Errorf("left pixel %v", got)
	}
	if got := overlay.NRGBAAt(90, 25); got != (color.NRGBA{}) {
		t.Errorf("right pixel %v", got)
	}
}

func TestThresholdIsStrict(t *testing.T) {
	pm := &ProbabilityMap{Width: 3, Height: 1, P: []float32{0.4, 0.5, 0.6}}
	g := Threshold(pm, 0.5)
	want := []uint8{0, 0, 0xff}
	for i, v := range want {
		if g.Pix[i] != v {
			t.Errorf("pixel %d = %d, want %d", i, g.Pix[i], v)
		}
	}
}

func TestDetectRejectsWrongShape(t *testing.T) {
	d := NewDetector(badModel{})
	_, err := d.Detect(context.Background(), image.NewGray(image.Rect(0, 0, 8, 8)))
	if !errors.Is(err, ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
}

func TestPrepareGrayscale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	g := Prepare(src, image.Pt(4, 4))
	if g.GrayAt(1, 1).Y != 0xff {
		t.Fatalf("gray %v", g.GrayAt(1, 1))
	}
}

func TestRunnerSingleFlight(t *testing.T) {
	m := &halfModel{block: make(chan struct{})}
	r := NewRunner(NewDetector(m))
	ch, err := r.Start(context.Background(), image.NewGray(image.Rect(0, 0, 20, 20)))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := r.Start(context.Background(), image.NewGray(image.Rect(0, 0, 20, 20))); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(m.block)
	select {
	case res := <-ch:
		if res.Err != nil {
			t.Fatalf("result: %v", res.Err)
		}
		if res.Coverage != 0.5 {
			t.Errorf("coverage %v", res.Coverage)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no result")
	}
	if _, ok := <-ch; ok {
		t.Error("channel not closed after result")
	}
	if r.Running() {
		t.Error("runner still busy")
	}
}
