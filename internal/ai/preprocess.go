package ai

import (
	"image"

	"golang.org/x/image/draw"
)

// InputSize is the square edge length the classifier expects.
const InputSize = 224

// caffeMeans are subtracted per channel position. Channels are laid out
// R, G, B.
var caffeMeans = [3]float32{103.939, 116.779, 123.68}

// Tensor is one image in height × width × channel layout.
type Tensor [][][3]float32

// Preprocess resizes img to InputSize×InputSize with bilinear interpolation
// and applies caffe-style mean subtraction.
func Preprocess(img image.Image) Tensor {
	resized := image.NewRGBA(image.Rect(0, 0, InputSize, InputSize))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Src, nil)

	tensor := make(Tensor, InputSize)
	for y := 0; y < InputSize; y++ {
		row := make([][3]float32, InputSize)
		for x := 0; x < InputSize; x++ {
			off := resized.PixOffset(x, y)
			px := resized.Pix[off : off+3 : off+3]
			row[x] = [3]float32{
				float32(px[0]) - caffeMeans[0],
				float32(px[1]) - caffeMeans[1],
				float32(px[2]) - caffeMeans[2],
			}
		}
		tensor[y] = row
	}
	return tensor
}
