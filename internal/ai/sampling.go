package ai

import (
	"fmt"
	"image"
	"image/draw"
)

// SampleIndices returns the frame numbers to extract: N frames starting
// SkipSeconds into the video, spaced by floor((end-start)/N) where end is
// SkipSeconds before the last frame. Short videos yield a zero or negative
// step, so indices may repeat or fall outside the video; extraction stops at
// the first index that cannot be read.
func SampleIndices(info VideoInfo, opts ExtractOptions) []int {
	if opts.FrameCount <= 0 {
		return nil
	}

	skip := opts.SkipSeconds * info.FrameRate
	start := skip
	end := info.TotalFrames - skip
	step := floorDiv(end-start, opts.FrameCount)

	indices := make([]int, opts.FrameCount)
	for i := range indices {
		indices[i] = start + i*step
	}
	return indices
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// CropRows removes top rows from the top and bottom rows from the bottom of
// img. Columns are untouched.
func CropRows(img image.Image, top, bottom int) (image.Image, error) {
	if top <= 0 && bottom <= 0 {
		return img, nil
	}
	if top < 0 {
		top = 0
	}
	if bottom < 0 {
		bottom = 0
	}

	b := img.Bounds()
	if top+bottom >= b.Dy() {
		return nil, fmt.Errorf("crop of %d+%d rows leaves nothing of a %d row frame", top, bottom, b.Dy())
	}
	rect := image.Rect(b.Min.X, b.Min.Y+top, b.Max.X, b.Max.Y-bottom)

	if sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(rect), nil
	}

	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out, nil
}
