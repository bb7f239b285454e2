package mask

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ErrDeclined is returned when the user refuses a confirmation.
var ErrDeclined = errors.New("declined by user")

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(question string) bool

// Load decodes a PNG, JPEG, BMP or TIFF file.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// CheckPair returns nil when the mask belongs to the image or the user
// accepts the mismatch, and ErrDeclined otherwise.
func CheckPair(imagePath, maskPath string, confirm ConfirmFunc) error {
	if imagePath == "" || SameBase(imagePath, maskPath) {
		return nil
	}
	q := fmt.Sprintf("Mask %s does not match image %s. Load anyway?", filepath.Base(maskPath), filepath.Base(imagePath))
	if confirm != nil && confirm(q) {
		return nil
	}
	return ErrDeclined
}

// SaveMask writes the flattened overlay as PNG. An existing file is only
// replaced when confirm agrees.
func SaveMask(path string, overlay *image.NRGBA, confirm ConfirmFunc) error {
	return save(path, Flatten(overlay), confirm, func(f *os.File, img image.Image) error {
		return png.Encode(f, img)
	})
}

// SaveImage writes a source image. .jpg and .jpeg use maximum JPEG quality,
// everything else is PNG.
func SaveImage(path string, img image.Image, confirm ConfirmFunc) error {
	ext := strings.ToLower(filepath.Ext(path))
	return save(path, img, confirm, func(f *os.File, img image.Image) error {
		if ext == ".jpg" || ext == ".jpeg" {
			return jpeg.Encode(f, img, &jpeg.Options{Quality: 100})
		}
		return png.Encode(f, img)
	})
}

func save(path string, img image.Image, confirm ConfirmFunc, encode func(*os.File, image.Image) error) error {
	if _, err := os.Stat(path); err == nil {
		if confirm == nil || !confirm(fmt.Sprintf("%s already exists. Replace it?", filepath.Base(path))) {
			return fmt.Errorf("save %s: %w", path, ErrDeclined)
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := encode(out, img); err != nil {
		if cerr := out.Close(); cerr != nil {
			return fmt.Errorf("save %s: %v (closing: %v)", path, err, cerr)
		}
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("save %s: closing file: %w", path, err)
	}
	return nil
}
