package ai

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestPreprocessShapeAndMeans(t *testing.T) {
	tensor := Preprocess(uniformImage(640, 380, color.RGBA{R: 200, G: 100, B: 50, A: 255}))

	require.Len(t, tensor, InputSize)
	for _, row := range tensor {
		require.Len(t, row, InputSize)
	}

	for _, px := range [][3]float32{tensor[0][0], tensor[111][57], tensor[223][223]} {
		assert.InDelta(t, 200-103.939, px[0], 1e-3)
		assert.InDelta(t, 100-116.779, px[1], 1e-3)
		assert.InDelta(t, 50-123.68, px[2], 1e-3)
	}
}

func TestArgmax(t *testing.T) {
	p, err := Argmax([]float64{0.1, 0.6, 0.2, 0.1}, DefaultLabels)
	require.NoError(t, err)
	assert.Equal(t, "csom", p.Label)
	assert.Equal(t, 1, p.Index)
	assert.Equal(t, 0.6, p.Confidence)
}

func TestArgmaxFirstMaximumWins(t *testing.T) {
	p, err := Argmax([]float64{0.1, 0.4, 0.4, 0.1}, DefaultLabels)
	require.NoError(t, err)
	assert.Equal(t, "csom", p.Label)
}

func TestArgmaxRejectsBadVectors(t *testing.T) {
	_, err := Argmax(nil, DefaultLabels)
	assert.Error(t, err)

	_, err = Argmax([]float64{0.5, 0.5}, DefaultLabels)
	assert.Error(t, err)
}
