package gvi

import (
	"github.com/rotisserie/eris"
)

// ErrEmptyImage is returned when classification is asked for a zero-pixel
// raster. Callers must exclude such views before aggregating.
var ErrEmptyImage = eris.New("gvi: empty image")

// Segmentation defaults applied when classification runs with the
// segmentation pre-filter enabled.
const (
	SegScale   = 50.0
	SegSigma   = 0.5
	SegMinSize = 20
)

// Adaptive threshold clamp band. Raw Otsu values outside this band indicate a
// degenerate or near-uniform excess-green signal and are clamped, not
// rejected.
const (
	ThresholdFloor = 0.05
	ThresholdCeil  = 0.10
)

// Classifier computes the vegetation percentage of street-level views. The
// thresholder and segmenter are swappable; zero values select Otsu and
// Felzenszwalb region merging.
type Classifier struct {
	Threshold Thresholder
	Segmenter Segmenter
}

// Classify returns the percentage of pixels in img classified as vegetation,
// in [0,100]. When segment is set the image is first smoothed by region-mean
// segmentation. Pure function of the pixel data and flags.
func (c *Classifier) Classify(img *Image, segment bool) (float64, error) {
	n := img.W * img.H
	if n == 0 {
		return 0, ErrEmptyImage
	}

	segmenter := c.Segmenter
	if segmenter == nil {
		segmenter = Segment
	}
	thresholder := c.Threshold
	if thresholder == nil {
		thresholder = OtsuThreshold
	}

	if segment {
		img = segmenter(img, SegScale, SegSigma, SegMinSize)
	}

	// Excess-green signal: (g-r) + (g-b).
	exg := make([]float64, n)
	for i := 0; i < n; i++ {
		exg[i] = (img.G[i] - img.R[i]) + (img.G[i] - img.B[i])
	}

	threshold := thresholder(exg)
	if threshold > ThresholdCeil {
		threshold = ThresholdCeil
	} else if threshold < ThresholdFloor {
		threshold = ThresholdFloor
	}

	var count int
	for i := 0; i < n; i++ {
		r, g, b := img.R[i], img.G[i], img.B[i]
		rule := r < 0.6 && g < 0.9 && b < 0.6
		shadow := r < 0.3 && g < 0.3 && b < 0.3
		if (rule && exg[i] > threshold) || (shadow && exg[i] > ThresholdFloor) {
			count++
		}
	}
	return 100 * float64(count) / float64(n), nil
}
