// Package sharpness scores how blurry a photo is.
package sharpness

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
)

const (
	// BlurThreshold is the score below which a photo is flagged as blurry
	BlurThreshold = 100.0

	DefaultMaxDimension = 512
)

var ErrImageTooSmall = errors.New("image too small to score")

// Probe scores image sharpness; higher is sharper
type Probe interface {
	Score(ctx context.Context, data []byte) (float64, error)
}

// LaplacianProbe scores an image by the variance of its Laplacian over the
// grayscale channel. Large images are downscaled to MaxDimension first.
type LaplacianProbe struct {
	MaxDimension int
}

var _ Probe = LaplacianProbe{}

// Score implements Probe
func (p LaplacianProbe) Score(ctx context.Context, data []byte) (float64, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return 0, fmt.Errorf("failed to decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	maxDim := p.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	if b := img.Bounds(); b.Dx() > maxDim || b.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Box)
	}

	gray := imaging.Grayscale(img)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	if w < 3 || h < 3 {
		return 0, ErrImageTooSmall
	}
	at := func(x, y int) float64 {
		return float64(gray.Pix[y*gray.Stride+x*4])
	}

	var sum, sumSq float64
	n := float64((w - 2) * (h - 2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			l := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			sum += l
			sumSq += l * l
		}
	}
	mean := sum / n
	return sumSq/n - mean*mean, nil
}

// IsBlurry reports whether score falls under BlurThreshold
func IsBlurry(score float64) bool {
	return score < BlurThreshold
}
