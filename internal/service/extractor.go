package service

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"flagrate-rgb/internal/colour"
	"flagrate-rgb/internal/model"
)

// ErrDecode covers every way of failing to turn input into a palette:
// unreadable bytes, unsupported formats, failed fetches and empty quantization.
var ErrDecode = errors.New("image decode failed")

type ExtractorParams struct {
	PaletteSize int
	Grayscale   colour.GrayscaleParams
	Vibrancy    colour.VibrancyParams
}

func DefaultExtractorParams() ExtractorParams {
	return ExtractorParams{
		PaletteSize: 5,
		Grayscale:   colour.DefaultGrayscaleParams(),
		Vibrancy:    colour.DefaultVibrancyParams(),
	}
}

// Extractor picks the single colour of a cover that will look best on a
// coarse, saturated light source. It holds no mutable state.
type Extractor struct {
	quantizer Quantizer
	params    ExtractorParams
}

func NewExtractor(q Quantizer, params ExtractorParams) *Extractor {
	if params.PaletteSize <= 0 {
		params.PaletteSize = DefaultExtractorParams().PaletteSize
	}
	return &Extractor{quantizer: q, params: params}
}

func (e *Extractor) Params() ExtractorParams {
	return e.params
}

// ExtractPalette quantizes img and flags the grayscale entries.
func (e *Extractor) ExtractPalette(img image.Image) ([]model.PaletteEntry, error) {
	colors, err := e.quantizer.Quantize(img, e.params.PaletteSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(colors) == 0 {
		return nil, fmt.Errorf("%w: empty palette", ErrDecode)
	}
	if len(colors) > e.params.PaletteSize {
		colors = colors[:e.params.PaletteSize]
	}
	out := make([]model.PaletteEntry, 0, len(colors))
	for _, c := range colors {
		out = append(out, model.PaletteEntry{Color: c, Grayscale: colour.IsGrayscale(c, e.params.Grayscale)})
	}
	return out, nil
}

func (e *Extractor) ExtractMainColor(img image.Image) (colour.Color, error) {
	palette, err := e.ExtractPalette(img)
	if err != nil {
		return colour.Color{}, err
	}
	return e.MainColor(palette), nil
}

// MainColor applies the grayscale and vibrancy filters to an already
// extracted palette and returns the most dominant survivor, or white.
func (e *Extractor) MainColor(palette []model.PaletteEntry) colour.Color {
	for _, p := range palette {
		if p.Grayscale {
			continue
		}
		if colour.IsVibrant(p.Color, e.params.Vibrancy) {
			return p.Color
		}
	}
	return colour.White
}

func (e *Extractor) ExtractBytes(b []byte) (colour.Color, error) {
	img, err := DecodeImage(b)
	if err != nil {
		return colour.Color{}, err
	}
	return e.ExtractMainColor(img)
}

func (e *Extractor) ExtractWithSwatches(img image.Image, swatches map[string]colour.Color) (colour.Color, error) {
	palette, err := e.ExtractPalette(img)
	if err != nil {
		return colour.Color{}, err
	}
	return e.MatchSwatches(palette, swatches), nil
}

// MatchSwatches walks the non-grayscale palette entries in dominance order,
// finds the most similar named swatch for each and returns the first best
// match that is not itself grayscale. Swatch names are visited in sorted
// order so equal similarities resolve the same way every time.
func (e *Extractor) MatchSwatches(palette []model.PaletteEntry, swatches map[string]colour.Color) colour.Color {
	if len(swatches) == 0 {
		return colour.White
	}
	names := make([]string, 0, len(swatches))
	for name := range swatches {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, p := range palette {
		if p.Grayscale {
			continue
		}
		best := swatches[names[0]]
		bestScore := -1.0
		for _, name := range names {
			if s := colour.Similarity(p.Color, swatches[name]); s > bestScore {
				best, bestScore = swatches[name], s
			}
		}
		if !colour.IsGrayscale(best, e.params.Grayscale) {
			return best
		}
	}
	return colour.White
}
