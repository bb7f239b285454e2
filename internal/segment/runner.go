package segment

import (
	"context"
	"errors"
	"image"
	"log"
	"sync"
	"time"

	"github.com/example/defectmark/internal/mask"
)

// ErrBusy is returned when a detection is already running.
var ErrBusy = errors.New("detection already running")

// Result is delivered once per detection.
type Result struct {
	Overlay  *image.NRGBA
	Coverage float64
	Elapsed  time.Duration
	Err      error
}

// Runner runs one detection at a time off the caller's goroutine.
type Runner struct {
	det *Detector

	mu      sync.Mutex
	running bool
}

// NewRunner wraps a detector.
func NewRunner(d *Detector) *Runner {
	return &Runner{det: d}
}

// Running reports whether a detection is in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start begins detecting img. The image must not be modified until the
// result arrives. The returned channel yields exactly one Result and is then
// closed.
func (r *Runner) Start(ctx context.Context, img image.Image) (<-chan Result, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	r.running = true
	r.mu.Unlock()

	out := make(chan Result, 1)
	go func() {
		defer close(out)
		start := time.Now()
		overlay, err := r.det.Detect(ctx, img)
		res := Result{Overlay: overlay, Err: err, Elapsed: time.Since(start)}
		if err == nil {
			res.Coverage = mask.Coverage(overlay)
		}
		log.Printf("detect finished in %s", res.Elapsed.Round(time.Millisecond))
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		out <- res
	}()
	return out, nil
}
