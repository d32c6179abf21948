package service

import (
	"strconv"

	"flagrate-rgb/internal/colour"
	"flagrate-rgb/internal/model"
)

// WhiteCode is the strip's white preset. Mappers never pick it; white only
// comes from the extractor's grayscale fallback.
const WhiteCode = model.WhiteCode

const commandTerminator = "."

// LEDMapper maps any colour onto the strip's fixed palette. Implementations
// are total and deterministic.
type LEDMapper interface {
	Nearest(c colour.Color) model.LEDMatch
	Codes() []int
}

// DefaultHueTable is the IR remote's 16-preset strip, white excluded. Red is
// listed at both ends of the hue circle so plain distance works.
func DefaultHueTable() []model.HueBucket {
	return []model.HueBucket{
		{Hue: 0, Code: 4},
		{Hue: 41, Code: 5},
		{Hue: 80, Code: 6},
		{Hue: 90, Code: 7},
		{Hue: 100, Code: 8},
		{Hue: 120, Code: 9},
		{Hue: 167, Code: 10},
		{Hue: 177, Code: 11},
		{Hue: 199, Code: 13},
		{Hue: 205, Code: 14},
		{Hue: 240, Code: 15},
		{Hue: 252, Code: 16},
		{Hue: 264, Code: 17},
		{Hue: 274, Code: 18},
		{Hue: 285, Code: 19},
		{Hue: 360, Code: 4},
	}
}

func DefaultRGBTable() []model.RGBBucket {
	return []model.RGBBucket{
		{Color: colour.Color{R: 255, G: 0, B: 0}, Code: 4},
		{Color: colour.Color{R: 255, G: 175, B: 0}, Code: 5},
		{Color: colour.Color{R: 212, G: 255, B: 0}, Code: 6},
		{Color: colour.Color{R: 175, G: 255, B: 0}, Code: 7},
		{Color: colour.Color{R: 166, G: 255, B: 0}, Code: 8},
		{Color: colour.Color{R: 0, G: 255, B: 0}, Code: 9},
		{Color: colour.Color{R: 0, G: 255, B: 200}, Code: 10},
		{Color: colour.Color{R: 0, G: 255, B: 242}, Code: 11},
		{Color: colour.Color{R: 0, G: 175, B: 255}, Code: 13},
		{Color: colour.Color{R: 0, G: 149, B: 255}, Code: 14},
		{Color: colour.Color{R: 0, G: 0, B: 255}, Code: 15},
		{Color: colour.Color{R: 50, G: 0, B: 255}, Code: 16},
		{Color: colour.Color{R: 100, G: 0, B: 255}, Code: 17},
		{Color: colour.Color{R: 145, G: 0, B: 255}, Code: 18},
		{Color: colour.Color{R: 190, G: 0, B: 255}, Code: 19},
	}
}

// HueMapper picks the hue bucket closest to the input's hue and reports the
// fully saturated swatch of that bucket, whatever the input's lightness.
type HueMapper struct {
	table []model.HueBucket
}

func NewHueMapper(table []model.HueBucket) *HueMapper {
	if len(table) == 0 {
		table = DefaultHueTable()
	}
	cp := make([]model.HueBucket, len(table))
	copy(cp, table)
	return &HueMapper{table: cp}
}

func (m *HueMapper) Nearest(c colour.Color) model.LEDMatch {
	hue := c.HLS().H
	best := m.table[0]
	bestDist := absInt(best.Hue - hue)
	for _, b := range m.table[1:] {
		if d := absInt(b.Hue - hue); d < bestDist {
			best, bestDist = b, d
		}
	}
	return model.LEDMatch{Code: best.Code, Color: colour.FromHue(float64(best.Hue))}
}

func (m *HueMapper) Codes() []int {
	out := make([]int, 0, len(m.table))
	for _, b := range m.table {
		out = append(out, b.Code)
	}
	return out
}

// RGBMapper picks the palette colour with the highest RGB similarity.
type RGBMapper struct {
	table []model.RGBBucket
}

func NewRGBMapper(table []model.RGBBucket) *RGBMapper {
	if len(table) == 0 {
		table = DefaultRGBTable()
	}
	cp := make([]model.RGBBucket, len(table))
	copy(cp, table)
	return &RGBMapper{table: cp}
}

func (m *RGBMapper) Nearest(c colour.Color) model.LEDMatch {
	best := m.table[0]
	bestScore := colour.Similarity(c, best.Color)
	for _, b := range m.table[1:] {
		if s := colour.Similarity(c, b.Color); s > bestScore {
			best, bestScore = b, s
		}
	}
	return model.LEDMatch{Code: best.Code, Color: best.Color}
}

func (m *RGBMapper) Codes() []int {
	out := make([]int, 0, len(m.table))
	for _, b := range m.table {
		out = append(out, b.Code)
	}
	return out
}

func NewLEDMapper(strategy model.LEDStrategy, hue []model.HueBucket, rgb []model.RGBBucket) LEDMapper {
	if strategy == model.LEDRGB {
		return NewRGBMapper(rgb)
	}
	return NewHueMapper(hue)
}

// ResolveLED turns an extracted colour into the strip command. The white
// fallback bypasses the mapper and selects the reserved white preset.
func ResolveLED(m LEDMapper, c colour.Color) model.LEDMatch {
	if c == colour.White {
		return model.LEDMatch{Code: WhiteCode, Color: colour.White}
	}
	return m.Nearest(c)
}

// EncodeCommand renders a code the way the strip firmware parses it: decimal
// digits followed by a terminator, e.g. "9.".
func EncodeCommand(code int) string {
	return strconv.Itoa(code) + commandTerminator
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
