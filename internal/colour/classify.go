package colour

import "math"

// GrayscaleParams tunes IsGrayscale. Both values were picked by eye against a
// real strip; earlier builds used Tolerance 6.5 and Threshold 35.
type GrayscaleParams struct {
	// Tolerance is the largest allowed deviation of any channel from the mean.
	Tolerance float64 `yaml:"tolerance"`
	// Threshold is the distance from pure black or white under which a colour
	// is treated as having no hue at all.
	Threshold float64 `yaml:"threshold"`
}

func DefaultGrayscaleParams() GrayscaleParams {
	return GrayscaleParams{Tolerance: 7, Threshold: 34}
}

// IsGrayscale reports whether c is too dark, too bright or too flat to show a
// meaningful hue on an LED. Only the channel mean and deviations matter, so the
// result does not depend on channel order.
func IsGrayscale(c Color, p GrayscaleParams) bool {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)
	avg := (r + g + b) / 3

	if avg < p.Threshold || avg > 255-p.Threshold {
		return true
	}
	for _, ch := range [3]float64{r, g, b} {
		if math.Abs(ch-avg) > p.Tolerance {
			return false
		}
	}
	return true
}

const maxManhattan = 255 * 3

// Similarity is 1 minus the normalised Manhattan distance in RGB space.
func Similarity(a, b Color) float64 {
	diff := absDiff(a.R, b.R) + absDiff(a.G, b.G) + absDiff(a.B, b.B)
	return float64(maxManhattan-diff) / maxManhattan
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// VibrancyParams bounds the HLS band a colour must fall in to read well on the
// strip. The lightness band is half-open: [MinLightness, MaxLightness).
type VibrancyParams struct {
	MinLightness  int `yaml:"min_lightness"`
	MaxLightness  int `yaml:"max_lightness"`
	MinSaturation int `yaml:"min_saturation"`
}

func DefaultVibrancyParams() VibrancyParams {
	return VibrancyParams{MinLightness: 15, MaxLightness: 85, MinSaturation: 20}
}

func IsVibrant(c Color, p VibrancyParams) bool {
	hls := c.HLS()
	if hls.L < p.MinLightness || hls.L >= p.MaxLightness {
		return false
	}
	return hls.S >= p.MinSaturation
}
