package gvi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fill creates a w*h raster with every pixel set to the same color.
func fill(w, h int, r, g, b float64) *Image {
	img := NewImage(w, h)
	for i := range img.R {
		img.R[i] = r
		img.G[i] = g
		img.B[i] = b
	}
	return img
}

func TestClassifyEmptyImage(t *testing.T) {
	c := &Classifier{}
	_, err := c.Classify(NewImage(0, 0), false)
	require.ErrorIs(t, err, ErrEmptyImage)
}

func TestClassifyAllVegetation(t *testing.T) {
	c := &Classifier{}
	// Dark-ish green: passes the rule mask with a strong excess-green signal.
	img := fill(10, 10, 0.15, 0.7, 0.15)

	pct, err := c.Classify(img, false)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pct)
}

func TestClassifyNoVegetation(t *testing.T) {
	c := &Classifier{}
	// Gray pavement: no excess green anywhere.
	img := fill(10, 10, 0.5, 0.5, 0.5)

	pct, err := c.Classify(img, false)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pct)
}

func TestClassifyDeterministic(t *testing.T) {
	c := &Classifier{}
	img := NewImage(16, 16)
	for i := range img.R {
		img.R[i] = float64(i%7) / 10
		img.G[i] = float64(i%11) / 12
		img.B[i] = float64(i%5) / 9
	}

	first, err := c.Classify(img.Clone(), true)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.Classify(img.Clone(), true)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestClassifyMonotonicGreenResponse(t *testing.T) {
	c := &Classifier{}
	prev := -1.0
	for greens := 0; greens <= 100; greens += 20 {
		img := fill(10, 10, 0.5, 0.5, 0.5)
		for i := 0; i < greens; i++ {
			img.R[i], img.G[i], img.B[i] = 0.15, 0.7, 0.15
		}
		pct, err := c.Classify(img, false)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, pct, prev, "adding green pixels must not lower the result")
		prev = pct
	}
}

func TestThresholdClampUpper(t *testing.T) {
	// A thresholder claiming 0.5 must be clamped to 0.10: a pixel with
	// ExG=0.2 still counts.
	c := &Classifier{Threshold: func([]float64) float64 { return 0.5 }}
	img := fill(4, 4, 0.3, 0.4, 0.3) // ExG = 0.2, rule mask passes

	pct, err := c.Classify(img, false)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pct)
}

func TestThresholdClampLower(t *testing.T) {
	// A thresholder claiming 0.01 must be clamped to 0.05: a pixel with
	// ExG=0.03 does not count even though it clears the raw threshold.
	c := &Classifier{Threshold: func([]float64) float64 { return 0.01 }}
	img := fill(4, 4, 0.4, 0.415, 0.4) // ExG = 0.03, rule mask passes

	pct, err := c.Classify(img, false)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pct)
}

func TestClassifyShadowVegetation(t *testing.T) {
	c := &Classifier{}
	// Very dark pixels with a modest green excess: caught by the shadow
	// branch even when above-threshold confidence is not reached.
	img := fill(10, 10, 0.1, 0.18, 0.1) // ExG = 0.16, all channels < 0.3

	pct, err := c.Classify(img, false)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pct)
}

func TestClassifyUniformImageClamps(t *testing.T) {
	c := &Classifier{}
	// Uniform image: Otsu degenerates to a flat histogram but the clamp band
	// keeps the threshold defined.
	img := fill(8, 8, 0.2, 0.2, 0.2)

	pct, err := c.Classify(img, false)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pct)
}

func TestClassifySegmentationDefaults(t *testing.T) {
	var gotScale, gotSigma float64
	var gotMinSize int
	c := &Classifier{
		Segmenter: func(img *Image, scale, sigma float64, minSize int) *Image {
			gotScale, gotSigma, gotMinSize = scale, sigma, minSize
			return img
		},
	}
	_, err := c.Classify(fill(4, 4, 0.2, 0.5, 0.2), true)
	require.NoError(t, err)
	assert.Equal(t, 50.0, gotScale)
	assert.Equal(t, 0.5, gotSigma)
	assert.Equal(t, 20, gotMinSize)
}
