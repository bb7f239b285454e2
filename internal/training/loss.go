package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Column names written by the trainer.
const (
	ColEpoch = "epoch"
	ColTrain = "Training Loss"
	ColVal   = "Validation Loss"
)

// Epoch is one row of the loss log.
type Epoch struct {
	Epoch int
	Train float64
	Val   float64
}

// ReadLossFile reads a loss log from path.
func ReadLossFile(path string) ([]Epoch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLossCSV(f)
}

// ReadLossCSV parses a loss log with a header row. Columns are located by
// name so extra columns (such as a pandas index) are ignored.
func ReadLossCSV(r io.Reader) ([]Epoch, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("loss log is empty")
		}
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range []string{ColEpoch, ColTrain, ColVal} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("loss log missing column %q", col)
		}
	}

	var out []Epoch
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, err
		}
		var e Epoch
		ep, err := strconv.ParseFloat(rec[idx[ColEpoch]], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: epoch: %w", line, err)
		}
		e.Epoch = int(ep)
		if e.Train, err = strconv.ParseFloat(rec[idx[ColTrain]], 64); err != nil {
			return nil, fmt.Errorf("line %d: training loss: %w", line, err)
		}
		if e.Val, err = strconv.ParseFloat(rec[idx[ColVal]], 64); err != nil {
			return nil, fmt.Errorf("line %d: validation loss: %w", line, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Summary condenses a loss curve.
type Summary struct {
	Epochs     int
	FinalTrain float64
	FinalVal   float64
	BestVal    float64
	BestEpoch  int
	MeanTrain  float64
	MeanVal    float64
	StdVal     float64
}

// Summarize computes the summary of a non-empty loss curve.
func Summarize(epochs []Epoch) (Summary, error) {
	if len(epochs) == 0 {
		return Summary{}, errors.New("no epochs")
	}
	train := make([]float64, len(epochs))
	val := make([]float64, len(epochs))
	for i, e := range epochs {
		train[i] = e.Train
		val[i] = e.Val
	}
	best := floats.MinIdx(val)
	last := epochs[len(epochs)-1]
	s := Summary{
		Epochs:     len(epochs),
		FinalTrain: last.Train,
		FinalVal:   last.Val,
		BestVal:    val[best],
		BestEpoch:  epochs[best].Epoch,
		MeanTrain:  stat.Mean(train, nil),
		MeanVal:    stat.Mean(val, nil),
	}
	if len(val) > 1 {
		s.StdVal = stat.StdDev(val, nil)
	}
	return s, nil
}

func (s Summary) String() string {
	return fmt.Sprintf("%d epochs, final loss %.4f/%.4f, best validation %.4f at epoch %d",
		s.Epochs, s.FinalTrain, s.FinalVal, s.BestVal, s.BestEpoch)
}
