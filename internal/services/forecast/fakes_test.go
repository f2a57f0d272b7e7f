package forecast

import (
	"context"
	"fmt"
	"sync"

	domsvc "KiranaCash/internal/domain/service"
)

type fakeModel struct {
	name string
	fn   func(x domsvc.FeatureMatrix) [][]float64
	err  error

	mu   sync.Mutex
	last domsvc.FeatureMatrix
}

func (m *fakeModel) Name() string { return m.name }

func (m *fakeModel) Predict(_ context.Context, x domsvc.FeatureMatrix) ([][]float64, error) {
	m.mu.Lock()
	m.last = x
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.fn(x), nil
}

func (m *fakeModel) lastMatrix() domsvc.FeatureMatrix {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func constant(v ...float64) func(domsvc.FeatureMatrix) [][]float64 {
	return func(x domsvc.FeatureMatrix) [][]float64 {
		out := make([][]float64, len(x.Rows))
		for i := range out {
			out[i] = append([]float64(nil), v...)
		}
		return out
	}
}

type fakeLoader struct {
	models map[string]domsvc.Model
}

func (l *fakeLoader) Load(_ context.Context, name, _ string) (domsvc.Model, error) {
	m, ok := l.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s not found", domsvc.ErrModelLoad, name)
	}
	return m, nil
}

func column(x domsvc.FeatureMatrix, row int, name string) float64 {
	for i, c := range x.Columns {
		if c == name {
			return x.Rows[row][i]
		}
	}
	panic("no column " + name)
}
