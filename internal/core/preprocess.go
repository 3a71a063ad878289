package core

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// ImageSize is the square edge, in pixels, the classifier was trained on.
const ImageSize = 128

const channels = 3

var ErrInvalidImage = errors.New("invalid image")

func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error decoding image: %w: %w", ErrInvalidImage, err)
	}
	return img, nil
}

func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening image %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("error decoding image %s: %w: %w", path, ErrInvalidImage, err)
	}
	return img, nil
}

// Preprocess resizes img to size x size by nearest pixel sampling, matching
// PIL's NEAREST filter, and returns a batch of one in NHWC order with RGB
// values scaled to [0, 1]. Alpha is dropped without premultiplying.
func Preprocess(img image.Image, size int) []float32 {
	data := make([]float32, 0, size*size*channels)

	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return append(data, make([]float32, size*size*channels)...)
	}

	for y := 0; y < size; y++ {
		sy := bounds.Min.Y + nearest(y, srcH, size)
		for x := 0; x < size; x++ {
			sx := bounds.Min.X + nearest(x, srcW, size)
			c := color.NRGBAModel.Convert(img.At(sx, sy)).(color.NRGBA)
			data = append(data,
				float32(c.R)/255.0,
				float32(c.G)/255.0,
				float32(c.B)/255.0,
			)
		}
	}
	return data
}

// nearest maps destination index i onto a source axis of length src using the
// pixel centre of i.
func nearest(i, src, dst int) int {
	return min(src-1, (2*i+1)*src/(2*dst))
}

// InputShape is the model input shape for a single preprocessed image.
func InputShape(size int) []int64 {
	return []int64{1, int64(size), int64(size), channels}
}
