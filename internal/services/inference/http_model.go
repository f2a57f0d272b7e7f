package inference

import (
	"context"
	"fmt"
	"net/url"

	domsvc "KiranaCash/internal/domain/service"
)

// HTTPModel calls a remote model server:
// POST {base}/models/{name}/predict {"columns":[...],"rows":[[...]]} -> {"predictions":[[...]]}.
type HTTPModel struct {
	name     string
	base     *HTTPServiceBase
	features []string
}

type modelInfo struct {
	Name     string   `json:"name"`
	Features []string `json:"features"`
	Outputs  int      `json:"outputs"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
}

// NewHTTPModel resolves the model's metadata so a missing model fails at load time.
func NewHTTPModel(ctx context.Context, name string, base *HTTPServiceBase) (*HTTPModel, error) {
	var info modelInfo
	if err := base.GetJSON(ctx, "/models/"+url.PathEscape(name), &info); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domsvc.ErrModelLoad, name, err)
	}
	return &HTTPModel{name: name, base: base, features: info.Features}, nil
}

func (m *HTTPModel) Name() string { return m.name }

func (m *HTTPModel) Predict(ctx context.Context, x domsvc.FeatureMatrix) ([][]float64, error) {
	if len(m.features) > 0 {
		if err := checkColumns(m.name, m.features, x.Columns); err != nil {
			return nil, err
		}
	}
	var pr predictResponse
	if err := m.base.PostJSON(ctx, "/models/"+url.PathEscape(m.name)+"/predict", x, &pr); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domsvc.ErrInference, m.name, err)
	}
	if len(pr.Predictions) != len(x.Rows) {
		return nil, fmt.Errorf("%w: %s returned %d rows for %d inputs", domsvc.ErrInference, m.name, len(pr.Predictions), len(x.Rows))
	}
	return pr.Predictions, nil
}

var _ domsvc.Model = (*HTTPModel)(nil)
