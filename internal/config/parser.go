package config

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"
)

// Parse reads configuration from an io.Reader. Missing keys keep their
// defaults and unknown keys are ignored.
func Parse(r io.Reader) (*Config, error) {
	cfg := New()
	scanner := bufio.NewScanner(r)

	var section string
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(line, "["), "]"))
			continue
		}

		var parts []string
		if strings.Contains(line, "=") {
			parts = strings.SplitN(line, "=", 2)
		} else if strings.Contains(line, ":") {
			parts = strings.SplitN(line, ":", 2)
		} else {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])
		if strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") && len(value) >= 2 {
			value = value[1 : len(value)-1]
		}

		var err error
		switch section {
		case "":
			if key == "save_dir" {
				cfg.SaveDir = value
			}
		case "viewport":
			err = setViewportField(&cfg.Viewport, key, value)
		case "brush":
			err = setBrushField(&cfg.Brush, key, value)
		case "ruler":
			err = setRulerField(&cfg.Ruler, key, value)
		case "model":
			err = setModelField(&cfg.Model, key, value)
		case "train":
			setTrainField(&cfg.Train, key, value)
		case "notify":
			err = setNotifyField(&cfg.Notify, key, value)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d in section [%s]: %w", lineNo, section, err)
		}
	}

	return cfg, scanner.Err()
}

func setViewportField(v *Viewport, key, value string) (err error) {
	switch key {
	case "width":
		v.Width, err = parsePositive(key, value)
	case "height":
		v.Height, err = parsePositive(key, value)
	case "backdrop":
		v.Backdrop, err = parseColor(value)
	case "zoom_step":
		v.ZoomStep, err = strconv.ParseFloat(value, 64)
		if err == nil && v.ZoomStep <= 1 {
			err = fmt.Errorf("zoom_step must be greater than 1")
		}
	}
	return err
}

func setBrushField(b *Brush, key, value string) (err error) {
	switch key {
	case "pen_width":
		b.PenWidth, err = parsePositive(key, value)
	case "eraser_width":
		b.EraserWidth, err = parsePositive(key, value)
	case "max_width":
		b.MaxWidth, err = parsePositive(key, value)
	case "pen_color":
		b.PenColor, err = parseColor(value)
	}
	return err
}

func setRulerField(r *Ruler, key, value string) (err error) {
	switch key {
	case "unit":
		r.Unit = value
	case "line_color":
		r.LineColor, err = parseColor(value)
	case "point_color":
		r.PointColor, err = parseColor(value)
	case "line_width":
		r.LineWidth, err = parsePositive(key, value)
	case "point_width":
		r.PointWidth, err = parsePositive(key, value)
	}
	return err
}

func setModelField(m *Model, key, value string) (err error) {
	switch key {
	case "path":
		m.Path = value
	case "input_width":
		m.InputWidth, err = parsePositive(key, value)
	case "input_height":
		m.InputHeight, err = parsePositive(key, value)
	case "threshold":
		m.Threshold, err = strconv.ParseFloat(value, 64)
		if err == nil && (m.Threshold <= 0 || m.Threshold >= 1) {
			err = fmt.Errorf("threshold must be between 0 and 1")
		}
	}
	return err
}

func setTrainField(t *Train, key, value string) {
	switch key {
	case "command":
		t.Command = value
	case "dataset":
		t.Dataset = value
	case "train_set":
		t.TrainSet = value
	case "val_set":
		t.ValSet = value
	case "output":
		t.Output = value
	case "loss_csv":
		t.LossCSV = value
	}
}

func setNotifyField(n *Notify, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean for key %s: %w", key, err)
	}
	switch key {
	case "save":
		n.Save = b
	case "detect":
		n.Detect = b
	case "train":
		n.Train = b
	case "copy":
		n.Copy = b
	}
	return nil
}

func parsePositive(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for key %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return n, nil
}

// parseColor parses #RRGGBB or #RRGGBBAA.
func parseColor(s string) (color.NRGBA, error) {
	if !strings.HasPrefix(s, "#") {
		return color.NRGBA{}, fmt.Errorf("color must start with #")
	}
	hex := strings.TrimPrefix(s, "#")
	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, err
	}
	switch len(hex) {
	case 6:
		return color.NRGBA{R: uint8(val >> 16), G: uint8(val >> 8), B: uint8(val), A: 255}, nil
	case 8:
		return color.NRGBA{R: uint8(val >> 24), G: uint8(val >> 16), B: uint8(val >> 8), A: uint8(val)}, nil
	}
	return color.NRGBA{}, fmt.Errorf("invalid hex length")
}
