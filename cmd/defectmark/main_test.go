package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seehuhn.de/go/geom/vec"

	"github.com/example/defectmark/internal/config"
	"github.com/example/defectmark/internal/mask"
)

// execute runs the command tree with a fresh config file and captures
// stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.rc")
	if err := os.WriteFile(path, []byte(config.New().String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	measureOpts.measure = nil
	measureOpts.image, measureOpts.output = "", ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--config", path}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		in      string
		want    [2]vec.Vec2
		wantErr bool
	}{
		{in: "0,0,3,4", want: [2]vec.Vec2{{X: 0, Y: 0}, {X: 3, Y: 4}}},
		{in: " 1.5, 2 ,3,4 ", want: [2]vec.Vec2{{X: 1.5, Y: 2}, {X: 3, Y: 4}}},
		{in: "1,2,3", wantErr: true},
		{in: "a,2,3,4", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseLine(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseLine(%q) error = %v", tt.in, err)
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseLine(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMeasureCommand(t *testing.T) {
	out, err := execute(t, "measure",
		"--calibrate", "0,10,100,10", "--length", "20",
		"--measure", "0,0,0,50", "--measure", "10,10,40,50")
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	want := "Scale is 5.00 pix/mm\nLength is 10.00 mm\nLength is 10.00 mm\n"
	if out != want {
		t.Fatalf("output %q, want %q", out, want)
	}
}

func TestMeasureRejectsZeroLength(t *testing.T) {
	if _, err := execute(t, "measure", "--calibrate", "0,0,10,0", "--length", "0"); err == nil {
		t.Fatal("expected invalid length")
	}
}

func TestMeasureDrawsMarkers(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "part.png")
	img := image.NewNRGBA(image.Rect(0, 0, 120, 60))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	dst := filepath.Join(dir, "marked.png")
	if _, err := execute(t, "measure", "--calibrate", "0,10,100,10", "--length", "20",
		"--image", src, "--output", dst); err != nil {
		t.Fatalf("measure: %v", err)
	}
	got, err := mask.Load(dst)
	if err != nil {
		t.Fatal(err)
	}
	if got.Bounds().Size() != image.Pt(120, 60) {
		t.Fatalf("size %v", got.Bounds().Size())
	}
	want := config.New().Ruler.LineColor
	if c := color.NRGBAModel.Convert(got.At(50, 10)).(color.NRGBA); c != want {
		t.Fatalf("line pixel %v, want %v", c, want)
	}
}

func TestDetectMissingModel(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "part.png")
	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, err = execute(t, "detect", "--image", src, "--model", filepath.Join(dir, "none.onnx"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("detect without model: %v", err)
	}
}

func TestConfigPrint(t *testing.T) {
	out, err := execute(t, "config", "print")
	if err != nil {
		t.Fatal(err)
	}
	if out != config.New().String() {
		t.Fatalf("config print:\n%s", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "defectmark version dev") {
		t.Fatalf("version output %q", out)
	}
}
