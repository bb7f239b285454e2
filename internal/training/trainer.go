package training

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrBusy is returned when a training run is already in progress.
var ErrBusy = errors.New("training already running")

var execCommand = exec.CommandContext

// Job describes one run of the external trainer. Command is split on
// whitespace; the dataset layout and output paths are passed to it through
// DEFECTMARK_* environment variables.
type Job struct {
	Command  string
	Dataset  string
	TrainSet string
	ValSet   string
	Output   string
	LossCSV  string
	Stdout   io.Writer
	Stderr   io.Writer
}

// Report is the outcome of a finished run.
type Report struct {
	Train   []Pair
	Val     []Pair
	Model   string
	Losses  []Epoch
	Summary Summary
	Elapsed time.Duration
}

// Run checks the dataset, runs the trainer and reads back its loss log.
func Run(ctx context.Context, job Job) (*Report, error) {
	args := strings.Fields(job.Command)
	if len(args) == 0 {
		return nil, errors.New("no training command configured")
	}
	train, err := Discover(job.Dataset, job.TrainSet)
	if err != nil {
		return nil, fmt.Errorf("training set: %w", err)
	}
	val, err := Discover(job.Dataset, job.ValSet)
	if err != nil {
		return nil, fmt.Errorf("validation set: %w", err)
	}

	start := time.Now()
	cmd := execCommand(ctx, args[0], args[1:]...)
	cmd.Env = append(cmd.Environ(),
		"DEFECTMARK_TRAIN_DIR="+filepath.Join(job.Dataset, job.TrainSet),
		"DEFECTMARK_VAL_DIR="+filepath.Join(job.Dataset, job.ValSet),
		"DEFECTMARK_OUTPUT="+job.Output,
		"DEFECTMARK_LOSS_CSV="+job.LossCSV,
	)
	cmd.Stdout = job.Stdout
	cmd.Stderr = job.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	log.Printf("training: %s (%d train, %d val)", job.Command, len(train), len(val))
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run %s: %w", args[0], err)
	}

	losses, err := ReadLossFile(job.LossCSV)
	if err != nil {
		return nil, fmt.Errorf("loss log: %w", err)
	}
	sum, err := Summarize(losses)
	if err != nil {
		return nil, fmt.Errorf("loss log %s: %w", job.LossCSV, err)
	}
	return &Report{
		Train:   train,
		Val:     val,
		Model:   job.Output,
		Losses:  losses,
		Summary: sum,
		Elapsed: time.Since(start),
	}, nil
}

// Outcome is delivered once per background run.
type Outcome struct {
	Report *Report
	Err    error
}

// Runner runs one training job at a time in the background.
type Runner struct {
	mu      sync.Mutex
	running bool
}

// Start launches job. The channel yields one Outcome and is then closed.
func (r *Runner) Start(ctx context.Context, job Job) (<-chan Outcome, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	r.running = true
	r.mu.Unlock()

	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		rep, err := Run(ctx, job)
		if err != nil {
			log.Printf("training: %v", err)
		}
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		out <- Outcome{Report: rep, Err: err}
	}()
	return out, nil
}
