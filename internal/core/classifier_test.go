package core

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	scores   []float32
	err      error
	lastSize int
	released bool
}

func (m *fakeModel) Predict(input []float32) ([]float32, error) {
	m.lastSize = len(input)
	return m.scores, m.err
}

func (m *fakeModel) Release() {
	m.released = true
}

func scoresFor(label Label) []float32 {
	scores := make([]float32, len(ClassNames))
	for i, l := range ClassNames {
		scores[i] = 0.01
		if l == label {
			scores[i] = 0.91
		}
	}
	return scores
}

func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestArgmax(t *testing.T) {
	assert.Equal(t, -1, Argmax(nil))
	assert.Equal(t, 0, Argmax([]float32{1}))
	assert.Equal(t, 2, Argmax([]float32{0.1, 0.2, 0.7}))
	assert.Equal(t, 1, Argmax([]float32{0.1, 0.5, 0.5}), "ties resolve to the first maximum")
}

func TestToPrediction(t *testing.T) {
	pred, err := ToPrediction(scoresFor(SeptoriaLeafSpot))
	require.NoError(t, err)
	assert.Equal(t, SeptoriaLeafSpot, pred.Label)
	assert.InDelta(t, 0.91, pred.Confidence, 1e-6)
	assert.Len(t, pred.Probabilities, len(ClassNames))

	_, err = ToPrediction([]float32{0.5, 0.5})
	assert.Error(t, err)
}

func TestPreprocess(t *testing.T) {
	img, err := DecodeImage(encodePNG(t, 300, 200, color.RGBA{R: 255, G: 128, B: 0, A: 255}))
	require.NoError(t, err)

	data := Preprocess(img, ImageSize)
	require.Len(t, data, ImageSize*ImageSize*3)

	for _, v := range data {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}

	// NHWC: first pixel is r, g, b.
	assert.InDelta(t, 1.0, data[0], 1e-6)
	assert.InDelta(t, 128.0/255.0, data[1], 1e-6)
	assert.InDelta(t, 0.0, data[2], 1e-6)

	assert.Equal(t, []int64{1, ImageSize, ImageSize, 3}, InputShape(ImageSize))
}

func TestPreprocessSamplesNearestPixel(t *testing.T) {
	// Horizontal and vertical gradients: every source pixel is distinct.
	src := image.NewNRGBA(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			src.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 7, A: 255})
		}
	}

	data := Preprocess(src, ImageSize)
	require.Len(t, data, ImageSize*ImageSize*3)
	for y := 0; y < ImageSize; y++ {
		for x := 0; x < ImageSize; x++ {
			i := (y*ImageSize + x) * 3
			assert.InDelta(t, float32(2*x+1)/255.0, data[i], 1e-6)
			assert.InDelta(t, float32(2*y+1)/255.0, data[i+1], 1e-6)
			assert.InDelta(t, float32(7)/255.0, data[i+2], 1e-6)
		}
	}
}

func TestPreprocessCheckerboardStaysBinary(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 384, 384))
	for y := 0; y < 384; y++ {
		for x := 0; x < 384; x++ {
			if (x+y)%2 == 1 {
				src.Set(x, y, color.White)
			}
		}
	}

	black, white := 0, 0
	for _, v := range Preprocess(src, ImageSize) {
		switch v {
		case 0:
			black++
		case 1:
			white++
		default:
			t.Fatalf("expected only 0 or 1, got %v", v)
		}
	}
	assert.Positive(t, black)
	assert.Positive(t, white)
}

func TestPreprocessIgnoresAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 0})
		}
	}

	data := Preprocess(src, 2)
	require.Len(t, data, 2*2*3)
	assert.InDelta(t, 200.0/255.0, data[0], 1e-6)
	assert.InDelta(t, 100.0/255.0, data[1], 1e-6)
	assert.InDelta(t, 50.0/255.0, data[2], 1e-6)
}

func TestClassifier(t *testing.T) {
	model := &fakeModel{scores: scoresFor(Healthy)}
	classifier := NewClassifier(model)

	pred, err := classifier.ClassifyBytes(encodePNG(t, 64, 64, color.RGBA{G: 200, A: 255}))
	require.NoError(t, err)
	assert.Equal(t, Healthy, pred.Label)
	assert.Equal(t, ImageSize*ImageSize*3, model.lastSize)

	path := filepath.Join(t.TempDir(), "leaf.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, 16, 16, color.White), 0644))
	pred, err = classifier.ClassifyFile(path)
	require.NoError(t, err)
	assert.Equal(t, Healthy, pred.Label)

	classifier.Release()
	assert.True(t, model.released)
}

func TestClassifierErrors(t *testing.T) {
	classifier := NewClassifier(&fakeModel{err: errors.New("boom")})

	_, err := classifier.ClassifyBytes([]byte("not an image"))
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = classifier.ClassifyBytes(encodePNG(t, 8, 8, color.Black))
	assert.ErrorContains(t, err, "boom")

	_, err = classifier.ClassifyFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidImage)
}

func TestLoadModelUnknownType(t *testing.T) {
	_, err := LoadModel("keras", "model.h5")
	assert.ErrorContains(t, err, "unsupported model type")
}
