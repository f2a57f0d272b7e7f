package inference

import (
	"context"
	"encoding/json"
	"fmt"

	domsvc "KiranaCash/internal/domain/service"
)

// LinearModel is an exported multi-output linear regressor:
// y[k] = intercept[k] + sum_j coef[k][j] * x[j].
type LinearModel struct {
	ModelName string      `json:"name"`
	Schema    string      `json:"schema,omitempty"`
	Features  []string    `json:"features"`
	Intercept []float64   `json:"intercept"`
	Coef      [][]float64 `json:"coef"`
}

// ParseLinearModel decodes and checks an exported model document.
func ParseLinearModel(b []byte) (*LinearModel, error) {
	var m LinearModel
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if len(m.Features) == 0 {
		return nil, fmt.Errorf("model %q has no features", m.ModelName)
	}
	if len(m.Coef) == 0 || len(m.Coef) != len(m.Intercept) {
		return nil, fmt.Errorf("model %q: %d coefficient rows for %d intercepts", m.ModelName, len(m.Coef), len(m.Intercept))
	}
	for k, row := range m.Coef {
		if len(row) != len(m.Features) {
			return nil, fmt.Errorf("model %q: output %d has %d coefficients for %d features", m.ModelName, k, len(row), len(m.Features))
		}
	}
	return &m, nil
}

func (m *LinearModel) Name() string { return m.ModelName }

// Outputs is the number of predicted values per row.
func (m *LinearModel) Outputs() int { return len(m.Intercept) }

func (m *LinearModel) Predict(_ context.Context, x domsvc.FeatureMatrix) ([][]float64, error) {
	if err := checkColumns(m.ModelName, m.Features, x.Columns); err != nil {
		return nil, err
	}
	out := make([][]float64, len(x.Rows))
	for i, row := range x.Rows {
		if len(row) != len(m.Features) {
			return nil, fmt.Errorf("%w: %s row %d has %d values for %d features", domsvc.ErrInference, m.ModelName, i, len(row), len(m.Features))
		}
		y := make([]float64, len(m.Intercept))
		for k, coef := range m.Coef {
			v := m.Intercept[k]
			for j, c := range coef {
				v += c * row[j]
			}
			y[k] = v
		}
		out[i] = y
	}
	return out, nil
}

// checkColumns rejects a matrix whose columns differ from the fitted ones.
func checkColumns(name string, fitted, got []string) error {
	if len(fitted) != len(got) {
		return fmt.Errorf("%w: %s fitted on %d columns, got %d", domsvc.ErrInference, name, len(fitted), len(got))
	}
	for i := range fitted {
		if fitted[i] != got[i] {
			return fmt.Errorf("%w: %s column %d is %q, got %q", domsvc.ErrInference, name, i, fitted[i], got[i])
		}
	}
	return nil
}

var _ domsvc.Model = (*LinearModel)(nil)
