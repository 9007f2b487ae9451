package ai

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	overlayX        = 50
	overlayY        = 50
	overlayFontSize = 28
	jpegQuality     = 95
)

// Annotator writes the prediction overlay onto result frames.
type Annotator struct {
	mu   sync.Mutex // font.Face caches glyphs and is not goroutine safe
	face font.Face
}

func NewAnnotator() (*Annotator, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    overlayFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return &Annotator{face: face}, nil
}

// Annotate returns a copy of img with the label on the first line and the
// confidence on the second, anchored at (50, 50).
func (a *Annotator) Annotate(img image.Image, label string, confidence float64) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	a.mu.Lock()
	defer a.mu.Unlock()

	lineHeight := a.face.Metrics().Height.Ceil()
	d := &font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(color.White),
		Face: a.face,
	}

	lines := []string{
		"Predicted Class: " + label,
		fmt.Sprintf("Accuracy: %g", confidence),
	}
	for i, line := range lines {
		d.Dot = fixed.P(overlayX, overlayY+i*lineHeight)
		d.DrawString(line)
	}
	return out
}

// EncodeJPEG encodes img at the quality used for result images.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
