package core

import (
	"fmt"
	"image"
)

type Prediction struct {
	Label         Label
	Confidence    float32
	Probabilities map[Label]float32
}

// Classifier turns images into predictions using a loaded Model.
type Classifier struct {
	model     Model
	imageSize int
}

func NewClassifier(model Model) *Classifier {
	return &Classifier{model: model, imageSize: ImageSize}
}

func (c *Classifier) ClassifyImage(img image.Image) (Prediction, error) {
	scores, err := c.model.Predict(Preprocess(img, c.imageSize))
	if err != nil {
		return Prediction{}, fmt.Errorf("error running model: %w", err)
	}
	return ToPrediction(scores)
}

// ClassifyFile loads the image at path from disk before classifying it.
func (c *Classifier) ClassifyFile(path string) (Prediction, error) {
	img, err := LoadImage(path)
	if err != nil {
		return Prediction{}, err
	}
	return c.ClassifyImage(img)
}

func (c *Classifier) ClassifyBytes(data []byte) (Prediction, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return Prediction{}, err
	}
	return c.ClassifyImage(img)
}

func (c *Classifier) Release() {
	c.model.Release()
}

// ToPrediction maps a vector of class scores to the label with the highest score.
func ToPrediction(scores []float32) (Prediction, error) {
	if len(scores) != len(ClassNames) {
		return Prediction{}, fmt.Errorf("model returned %d scores, expected %d", len(scores), len(ClassNames))
	}

	idx := Argmax(scores)
	label, err := LabelForIndex(idx)
	if err != nil {
		return Prediction{}, err
	}

	probs := make(map[Label]float32, len(scores))
	for i, score := range scores {
		probs[ClassNames[i]] = score
	}

	return Prediction{Label: label, Confidence: scores[idx], Probabilities: probs}, nil
}

// Argmax returns the index of the first maximum value, or -1 for an empty slice.
func Argmax(values []float32) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i, v := range values[1:] {
		if v > values[best] {
			best = i + 1
		}
	}
	return best
}
