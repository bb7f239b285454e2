// Package training drives an external trainer over an image/mask dataset
// and summarises the loss curve it writes.
package training

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/example/defectmark/internal/mask"
)

// ErrNoPairs is returned when a dataset split has no usable image/mask pair.
var ErrNoPairs = errors.New("no image/mask pairs")

// Pair is one training sample.
type Pair struct {
	Image string
	Mask  string
}

// Discover lists the *.jpeg images under dir/set that have a paired .png
// mask next to them. Images without a mask are skipped.
func Discover(dir, set string) ([]Pair, error) {
	root := filepath.Join(dir, set)
	images, err := filepath.Glob(filepath.Join(root, "*.jpeg"))
	if err != nil {
		return nil, err
	}
	sort.Strings(images)
	var pairs []Pair
	for _, img := range images {
		m := mask.PairedPath(img)
		if _, err := os.Stat(m); err != nil {
			continue
		}
		pairs = append(pairs, Pair{Image: img, Mask: m})
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%s: %w", root, ErrNoPairs)
	}
	return pairs, nil
}
