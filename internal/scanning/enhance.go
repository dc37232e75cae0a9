package scanning

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Default enhancement factors, tuned for phone photos of thermal paper
const (
	DefaultContrast  = 1.5
	DefaultSharpness = 2.0
)

// sharpenSigma is the blur radius used per unit of sharpness above 1
const sharpenSigma = 1.0

// Enhancer prepares a receipt photo for OCR: grayscale, then contrast, then
// sharpness. A factor of 1 (or less) leaves that step out.
type Enhancer struct {
	Contrast  float64
	Sharpness float64
}

// NewEnhancer creates an Enhancer with the given factors
func NewEnhancer(contrast, sharpness float64) *Enhancer {
	return &Enhancer{Contrast: contrast, Sharpness: sharpness}
}

// Enhance decodes data, enhances it and returns it as a grayscale PNG
func (e *Enhancer) Enhance(data []byte, contentType string) ([]byte, error) {
	img, err := decodeImage(data, normalizeMimeType(contentType))
	if err != nil {
		return nil, fmt.Errorf("decoding image for enhancement: %w", err)
	}

	out := imaging.Grayscale(img)
	if e.Contrast > 1 {
		// a factor of 1.5 is a 50% contrast increase
		out = imaging.AdjustContrast(out, (e.Contrast-1)*100)
	}
	if e.Sharpness > 1 {
		out = imaging.Sharpen(out, sharpenSigma*(e.Sharpness-1))
	}
	return encodePNG(toGray(out))
}

// toGray repacks an image with equal channels into a single-channel one so
// the PNG is written as grayscale
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}
