package core

import (
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// OnnxClassifierModel runs a converted image classifier through ONNX Runtime.
// The environment must already be initialized with ort.InitializeEnvironment.
type OnnxClassifierModel struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func LoadOnnxModel(path string, imageSize, numClasses int) (Model, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("error reading model io info from %s: %w", path, err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("expected model with 1 input and 1 output, got %d inputs and %d outputs", len(inputs), len(outputs))
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(InputShape(imageSize)...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(numClasses)))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(path,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.Value{input}, []ort.Value{output},
		nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("failed to create onnx session: %w", err)
	}

	slog.Info("loaded onnx model", "path", path, "input", inputs[0].Name, "output", outputs[0].Name)

	return &OnnxClassifierModel{
		session: session,
		input:   input,
		output:  output,
	}, nil
}

func (m *OnnxClassifierModel) Predict(input []float32) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dst := m.input.GetData()
	if len(input) != len(dst) {
		return nil, fmt.Errorf("expected %d input values, got %d", len(dst), len(input))
	}
	copy(dst, input)

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("session run error: %w", err)
	}

	// The output tensor is reused between runs.
	scores := make([]float32, len(m.output.GetData()))
	copy(scores, m.output.GetData())
	return scores, nil
}

func (m *OnnxClassifierModel) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	if m.input != nil {
		m.input.Destroy()
		m.input = nil
	}
	if m.output != nil {
		m.output.Destroy()
		m.output = nil
	}
}
