package config

import (
	"errors"
	"fmt"
	"os"

	"flagrate-rgb/internal/colour"
	"flagrate-rgb/internal/model"
	"gopkg.in/yaml.v3"
)

// Tuning holds the empirically chosen extraction constants and the strip's
// palette tables. Nil tables mean "use the built-in table".
type Tuning struct {
	PaletteSize int
	Grayscale   colour.GrayscaleParams
	Vibrancy    colour.VibrancyParams
	HueTable    []model.HueBucket
	RGBTable    []model.RGBBucket
}

func DefaultTuning() Tuning {
	return Tuning{
		PaletteSize: 5,
		Grayscale:   colour.DefaultGrayscaleParams(),
		Vibrancy:    colour.DefaultVibrancyParams(),
	}
}

type tuningFile struct {
	PaletteSize int                    `yaml:"palette_size"`
	Grayscale   colour.GrayscaleParams `yaml:"grayscale"`
	Vibrancy    colour.VibrancyParams  `yaml:"vibrancy"`
	HueTable    []model.HueBucket      `yaml:"hue_table"`
	RGBTable    []struct {
		RGB  [3]int `yaml:"rgb"`
		Code int    `yaml:"code"`
	} `yaml:"rgb_table"`
}

// LoadTuning reads a YAML tuning file. Missing sections keep their defaults.
func LoadTuning(path string) (Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning file: %w", err)
	}
	return ParseTuning(data)
}

func ParseTuning(data []byte) (Tuning, error) {
	def := DefaultTuning()
	// Sections decode over the defaults so a partial section keeps the
	// fields it leaves out.
	f := tuningFile{Grayscale: def.Grayscale, Vibrancy: def.Vibrancy}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Tuning{}, fmt.Errorf("parse tuning file: %w", err)
	}

	t := def
	if f.PaletteSize != 0 {
		t.PaletteSize = f.PaletteSize
	}
	t.Grayscale, t.Vibrancy = f.Grayscale, f.Vibrancy
	if len(f.HueTable) > 0 {
		t.HueTable = f.HueTable
	}
	for i, e := range f.RGBTable {
		c, err := colour.New(e.RGB[0], e.RGB[1], e.RGB[2])
		if err != nil {
			return Tuning{}, fmt.Errorf("rgb_table[%d]: %w", i, err)
		}
		t.RGBTable = append(t.RGBTable, model.RGBBucket{Color: c, Code: e.Code})
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.PaletteSize < 1 || t.PaletteSize > 16 {
		return errors.New("palette size must be in [1,16]")
	}
	if t.Grayscale.Tolerance < 0 || t.Grayscale.Threshold < 0 || t.Grayscale.Threshold > 127 {
		return errors.New("grayscale tolerance must be >= 0 and threshold in [0,127]")
	}
	v := t.Vibrancy
	if v.MinLightness < 0 || v.MaxLightness > 100 || v.MinLightness >= v.MaxLightness {
		return errors.New("vibrancy lightness band must satisfy 0 <= min < max <= 100")
	}
	if v.MinSaturation < 0 || v.MinSaturation > 100 {
		return errors.New("vibrancy min saturation must be in [0,100]")
	}
	for i, b := range t.HueTable {
		if b.Hue < 0 || b.Hue > 360 {
			return fmt.Errorf("hue_table[%d]: hue %d out of range [0,360]", i, b.Hue)
		}
		if b.Code <= 0 {
			return fmt.Errorf("hue_table[%d]: code must be > 0", i)
		}
		if b.Code == model.WhiteCode {
			return fmt.Errorf("hue_table[%d]: code %d is reserved for white", i, model.WhiteCode)
		}
	}
	for i, b := range t.RGBTable {
		if b.Code <= 0 {
			return fmt.Errorf("rgb_table[%d]: code must be > 0", i)
		}
		if b.Code == model.WhiteCode {
			return fmt.Errorf("rgb_table[%d]: code %d is reserved for white", i, model.WhiteCode)
		}
	}
	return nil
}
