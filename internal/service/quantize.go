package service

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"flagrate-rgb/internal/colour"
	"github.com/EdlinOrg/prominentcolor"
	"github.com/disintegration/imaging"
)

// Quantizer reduces an image to at most k colours, most prevalent first.
type Quantizer interface {
	Quantize(img image.Image, k int) ([]colour.Color, error)
}

const (
	thumbnailSize    = 150
	kmeansResizeSide = 80
)

// KmeansQuantizer thumbnails the image and clusters it with prominentcolor.
type KmeansQuantizer struct {
	args int
}

func NewKmeansQuantizer() *KmeansQuantizer {
	return &KmeansQuantizer{args: prominentcolor.ArgumentNoCropping}
}

func (q *KmeansQuantizer) Quantize(img image.Image, k int) ([]colour.Color, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New("image is empty")
	}
	if b.Dx() > thumbnailSize || b.Dy() > thumbnailSize {
		img = imaging.Fit(img, thumbnailSize, thumbnailSize, imaging.Box)
	}

	items, err := prominentcolor.KmeansWithAll(k, img, q.args, kmeansResizeSide, nil)
	if err != nil {
		return nil, fmt.Errorf("kmeans: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Cnt > items[j].Cnt })

	out := make([]colour.Color, 0, len(items))
	for _, it := range items {
		out = append(out, colour.Color{
			R: channel8(it.Color.R),
			G: channel8(it.Color.G),
			B: channel8(it.Color.B),
		})
	}
	return out, nil
}

func channel8(v uint32) uint8 {
	if v > 255 {
		return 255
	}
	return uint8(v)
}
