// Package colour holds the RGB value type used across the pipeline and the
// small amount of colour math the extractor and LED mapper need.
package colour

import (
	"errors"
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

var ErrChannelRange = errors.New("colour channel out of range [0,255]")

// White is the fallback for images that carry no usable hue.
var White = Color{R: 255, G: 255, B: 255}

// Color is an immutable 8-bit RGB triple.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// New validates the channels instead of clamping them.
func New(r, g, b int) (Color, error) {
	for _, v := range [3]int{r, g, b} {
		if v < 0 || v > 255 {
			return Color{}, fmt.Errorf("%w: (%d, %d, %d)", ErrChannelRange, r, g, b)
		}
	}
	return Color{R: uint8(r), G: uint8(g), B: uint8(b)}, nil
}

func (c Color) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.R, c.G, c.B)
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// HLS is hue in degrees [0,360), lightness and saturation in percent [0,100].
type HLS struct {
	H int `json:"h"`
	L int `json:"l"`
	S int `json:"s"`
}

// HLS is recomputed from the RGB triple on every call. Values are truncated
// and then clamped, since float rounding can land a hair outside the range.
func (c Color) HLS() HLS {
	h, s, l := c.colorful().Hsl()
	return HLS{
		H: clamp(int(h), 0, 359),
		L: clamp(int(l*100), 0, 100),
		S: clamp(int(s*100), 0, 100),
	}
}

// FromHue returns the fully saturated, half-lightness swatch for a hue bucket.
func FromHue(hue float64) Color {
	hue = math.Mod(hue, 360)
	if hue < 0 {
		hue += 360
	}
	r, g, b := colorful.Hsl(hue, 1, 0.5).RGB255()
	return Color{R: r, G: g, B: b}
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
