// Package dnn runs segmentation networks exported to ONNX through the OpenCV
// DNN module.
package dnn

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/example/defectmark/internal/segment"
)

// Net is a segment.Model backed by an OpenCV network.
type Net struct {
	mu   sync.Mutex
	net  gocv.Net
	path string
}

var _ segment.Model = (*Net)(nil)

// Open loads an ONNX model from path. A missing file is reported with an
// error wrapping os.ErrNotExist.
func Open(path string) (*Net, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("load model %s: empty network", path)
	}
	return &Net{net: net, path: path}, nil
}

// Path returns the file the network was loaded from.
func (n *Net) Path() string { return n.path }

// Predict runs a forward pass on a grayscale image. Pixel values are scaled
// to [0, 1]; the network is expected to output one sigmoid channel.
func (n *Net) Predict(ctx context.Context, img *image.Gray) (*segment.ProbabilityMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	size := img.Bounds().Size()
	blob := gocv.BlobFromImage(src, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	n.mu.Lock()
	n.net.SetInput(blob, "")
	out := n.net.Forward("")
	n.mu.Unlock()
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	return probabilityMap(data, out.Size())
}

// Close releases the network.
func (n *Net) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.net.Close()
}

// probabilityMap copies an NCHW output with one sample and one channel.
func probabilityMap(data []float32, dims []int) (*segment.ProbabilityMap, error) {
	if len(dims) < 2 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	for _, d := range dims[:len(dims)-2] {
		if d != 1 {
			return nil, fmt.Errorf("unexpected output shape %v", dims)
		}
	}
	h, w := dims[len(dims)-2], dims[len(dims)-1]
	if len(data) < w*h {
		return nil, fmt.Errorf("output has %d values for %dx%d", len(data), w, h)
	}
	p := make([]float32, w*h)
	copy(p, data)
	return &segment.ProbabilityMap{Width: w, Height: h, P: p}, nil
}
