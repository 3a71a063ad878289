package core

import "fmt"

// ModelType represents the runtime used to execute the classifier
type ModelType string

const (
	OnnxModel ModelType = "onnx"
)

type Model interface {
	// Predict runs a forward pass over a single preprocessed image and returns
	// one score per class.
	Predict(input []float32) ([]float32, error)

	Release()
}

type ModelLoader func(path string) (Model, error)

func NewModelLoaders() map[ModelType]ModelLoader {
	return map[ModelType]ModelLoader{
		OnnxModel: func(path string) (Model, error) {
			return LoadOnnxModel(path, ImageSize, len(ClassNames))
		},
	}
}

func LoadModel(modelType ModelType, path string) (Model, error) {
	loader, ok := NewModelLoaders()[modelType]
	if !ok {
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
	return loader(path)
}
