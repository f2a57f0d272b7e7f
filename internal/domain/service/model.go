package service

import (
	"context"
	"errors"
)

var (
	// ErrModelLoad means a model handle could not be resolved at startup.
	ErrModelLoad = errors.New("model load failed")
	// ErrInference means a model rejected its input or returned a malformed matrix.
	ErrInference = errors.New("model inference failed")
	// ErrMalformedInput means caller-supplied data is unusable.
	ErrMalformedInput = errors.New("malformed input")
)

// FeatureMatrix is a batch of rows under a named column list.
type FeatureMatrix struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// Model is a trained predictor. Implementations are read-only after load
// and safe for concurrent use.
type Model interface {
	Name() string
	Predict(ctx context.Context, x FeatureMatrix) ([][]float64, error)
}

// ModelLoader resolves a model reference (file://, http://, https://) into a handle.
type ModelLoader interface {
	Load(ctx context.Context, name, ref string) (Model, error)
}
