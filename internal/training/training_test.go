package training

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func makeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "set1", "a.jpeg"))
	touch(t, filepath.Join(dir, "set1", "a.png"))
	touch(t, filepath.Join(dir, "set1", "b.jpeg"))
	touch(t, filepath.Join(dir, "set1", "b.png"))
	touch(t, filepath.Join(dir, "set1", "orphan.jpeg"))
	touch(t, filepath.Join(dir, "set2", "c.jpeg"))
	touch(t, filepath.Join(dir, "set2", "c.png"))
	return dir
}

func TestDiscover(t *testing.T) {
	dir := makeDataset(t)
	pairs, err := Discover(dir, "set1")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs: %+v", len(pairs), pairs)
	}
	if filepath.Base(pairs[0].Mask) != "a.png" {
		t.Errorf("first mask %s", pairs[0].Mask)
	}
	if _, err := Discover(dir, "set3"); !errors.Is(err, ErrNoPairs) {
		t.Errorf("expected ErrNoPairs, got %v", err)
	}
}

func TestReadLossCSV(t *testing.T) {
	in := ",epoch,Training Loss,Validation Loss\n0,1,0.9,0.8\n1,2,0.5,0.6\n2,3,0.3,0.7\n"
	epochs, err := ReadLossCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(epochs) != 3 || epochs[1] != (Epoch{Epoch: 2, Train: 0.5, Val: 0.6}) {
		t.Fatalf("unexpected %+v", epochs)
	}
	s, err := Summarize(epochs)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.BestEpoch != 2 || s.BestVal != 0.6 || s.FinalTrain != 0.3 {
		t.Errorf("summary %+v", s)
	}
	if math.Abs(s.MeanVal-0.7) > 1e-9 {
		t.Errorf("mean val %v", s.MeanVal)
	}
}

func TestReadLossCSVErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"epoch,Training Loss\n1,0.5\n",
		"epoch,Training Loss,Validation Loss\n1,x,0.5\n",
	} {
		if _, err := ReadLossCSV(strings.NewReader(in)); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
	if _, err := Summarize(nil); err == nil {
		t.Error("expected error for empty curve")
	}
}

func fakeExecCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
	return cmd
}

// TestHelperProcess plays the external trainer.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if os.Getenv("DEFECTMARK_TRAIN_DIR") == "" {
		os.Exit(3)
	}
	csv := "epoch,Training Loss,Validation Loss\n1,0.8,0.9\n2,0.4,0.5\n"
	if err := os.WriteFile(os.Getenv("DEFECTMARK_LOSS_CSV"), []byte(csv), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	os.Exit(0)
}

func TestRunReadsLossLog(t *testing.T) {
	orig := execCommand
	execCommand = fakeExecCommand
	t.Cleanup(func() { execCommand = orig })

	dir := makeDataset(t)
	job := Job{
		Command:  "trainer --epochs 2",
		Dataset:  dir,
		TrainSet: "set1",
		ValSet:   "set2",
		Output:   filepath.Join(dir, "model.onnx"),
		LossCSV:  filepath.Join(dir, "loss.csv"),
	}
	var r Runner
	ch, err := r.Start(context.Background(), job)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case out := <-ch:
		if out.Err != nil {
			t.Fatalf("run: %v", out.Err)
		}
		if len(out.Report.Train) != 2 || len(out.Report.Val) != 1 {
			t.Errorf("pairs %d/%d", len(out.Report.Train), len(out.Report.Val))
		}
		if out.Report.Summary.FinalVal != 0.5 || out.Report.Summary.Epochs != 2 {
			t.Errorf("summary %+v", out.Report.Summary)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("no outcome")
	}
}

func TestRunNeedsCommandAndData(t *testing.T) {
	if _, err := Run(context.Background(), Job{}); err == nil {
		t.Error("expected error without command")
	}
	_, err := Run(context.Background(), Job{Command: "x", Dataset: t.TempDir(), TrainSet: "set1"})
	if !errors.Is(err, ErrNoPairs) {
		t.Errorf("expected ErrNoPairs, got %v", err)
	}
}
