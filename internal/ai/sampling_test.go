package ai

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleIndices(t *testing.T) {
	tests := []struct {
		name  string
		info  VideoInfo
		opts  ExtractOptions
		first int
		step  int
	}{
		{
			name:  "ten second clip at 30fps",
			info:  VideoInfo{TotalFrames: 300, FrameRate: 30},
			opts:  DefaultExtractOptions(),
			first: 60,
			step:  6,
		},
		{
			name:  "span shorter than frame count",
			info:  VideoInfo{TotalFrames: 140, FrameRate: 30},
			opts:  DefaultExtractOptions(),
			first: 60,
			step:  0,
		},
		{
			name:  "negative span floors away from zero",
			info:  VideoInfo{TotalFrames: 100, FrameRate: 30},
			opts:  DefaultExtractOptions(),
			first: 60,
			step:  -1,
		},
		{
			name:  "no skip",
			info:  VideoInfo{TotalFrames: 95, FrameRate: 25},
			opts:  ExtractOptions{FrameCount: 10},
			first: 0,
			step:  9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			indices := SampleIndices(tt.info, tt.opts)
			require.Len(t, indices, tt.opts.FrameCount)
			for i, idx := range indices {
				assert.Equal(t, tt.first+i*tt.step, idx, "position %d", i)
			}
		})
	}
}

func TestSampleIndicesZeroCount(t *testing.T) {
	assert.Empty(t, SampleIndices(VideoInfo{TotalFrames: 300, FrameRate: 30}, ExtractOptions{}))
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, 6, floorDiv(180, 30))
	assert.Equal(t, 0, floorDiv(29, 30))
	assert.Equal(t, -1, floorDiv(-20, 30))
	assert.Equal(t, -4, floorDiv(-110, 30))
	assert.Equal(t, -2, floorDiv(-60, 30))
}

func gradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(y), G: uint8(x), B: 7, A: 255})
		}
	}
	return img
}

func TestCropRows(t *testing.T) {
	img := gradientImage(120, 200)

	cropped, err := CropRows(img, 50, 50)
	require.NoError(t, err)
	assert.Equal(t, 120, cropped.Bounds().Dx())
	assert.Equal(t, 100, cropped.Bounds().Dy())

	r, _, _, _ := cropped.At(cropped.Bounds().Min.X, cropped.Bounds().Min.Y).RGBA()
	assert.Equal(t, uint32(50), r>>8)
	r, _, _, _ = cropped.At(cropped.Bounds().Min.X, cropped.Bounds().Max.Y-1).RGBA()
	assert.Equal(t, uint32(149), r>>8)
}

func TestCropRowsNoop(t *testing.T) {
	img := gradientImage(10, 10)
	cropped, err := CropRows(img, 0, 0)
	require.NoError(t, err)
	assert.Same(t, img, cropped)
}

func TestCropRowsTooTall(t *testing.T) {
	_, err := CropRows(gradientImage(10, 100), 50, 50)
	assert.Error(t, err)
}
