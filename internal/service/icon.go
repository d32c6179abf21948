package service

import (
	"image"
	"image/color"
	"io"

	"flagrate-rgb/internal/colour"
	"github.com/disintegration/imaging"
)

const IconSize = 42

// Concentric discs centred at (20,20), painted outermost first.
var iconRings = []struct {
	radius float64
	fill   func(colour.Color) color.NRGBA
}{
	{radius: 20.5, fill: func(colour.Color) color.NRGBA { return color.NRGBA{R: 255, G: 255, B: 255, A: 255} }},
	{radius: 18.5, fill: func(colour.Color) color.NRGBA { return color.NRGBA{A: 255} }},
	{radius: 16.5, fill: func(c colour.Color) color.NRGBA { return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255} }},
}

// RenderIcon draws the tray badge: a white ring, a black ring and a disc of c
// on a transparent 42x42 canvas.
func RenderIcon(c colour.Color) *image.NRGBA {
	img := imaging.New(IconSize, IconSize, color.NRGBA{})
	const centre = 20.0
	for _, ring := range iconRings {
		fill := ring.fill(c)
		r2 := ring.radius * ring.radius
		for y := 0; y < IconSize; y++ {
			for x := 0; x < IconSize; x++ {
				dx, dy := float64(x)-centre, float64(y)-centre
				if dx*dx+dy*dy <= r2 {
					img.SetNRGBA(x, y, fill)
				}
			}
		}
	}
	return img
}

func WriteIconPNG(w io.Writer, c colour.Color) error {
	return imaging.Encode(w, RenderIcon(c), imaging.PNG)
}
