package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	domsvc "KiranaCash/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const linearDoc = `{
  "name": "toy",
  "schema": "toy/v1",
  "features": ["a", "b"],
  "intercept": [1, 0],
  "coef": [[2, 0], [0.5, 0.5]]
}`

func TestLinearModelPredict(t *testing.T) {
	m, err := ParseLinearModel([]byte(linearDoc))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Outputs())

	out, err := m.Predict(context.Background(), domsvc.FeatureMatrix{
		Columns: []string{"a", "b"},
		Rows:    [][]float64{{1, 3}, {0, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{3, 2}, {1, 0}}, out)
}

func TestLinearModelRejectsSchemaMismatch(t *testing.T) {
	m, err := ParseLinearModel([]byte(linearDoc))
	require.NoError(t, err)

	_, err = m.Predict(context.Background(), domsvc.FeatureMatrix{Columns: []string{"b", "a"}, Rows: [][]float64{{1, 2}}})
	assert.ErrorIs(t, err, domsvc.ErrInference)

	_, err = m.Predict(context.Background(), domsvc.FeatureMatrix{Columns: []string{"a", "b"}, Rows: [][]float64{{1}}})
	assert.ErrorIs(t, err, domsvc.ErrInference)
}

func TestParseLinearModelInvalid(t *testing.T) {
	for _, doc := range []string{
		`not json`,
		`{"features": [], "intercept": [0], "coef": [[]]}`,
		`{"features": ["a"], "intercept": [0, 1], "coef": [[1]]}`,
		`{"features": ["a"], "intercept": [0], "coef": [[1, 2]]}`,
	} {
		_, err := ParseLinearModel([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestLoaderFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toy.json")
	require.NoError(t, os.WriteFile(path, []byte(linearDoc), 0o644))

	l := NewLoader(0, nil)
	m, err := l.Load(context.Background(), "toy", "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, "toy", m.Name())

	_, err = l.Load(context.Background(), "missing", "file://"+filepath.Join(dir, "nope.json"))
	assert.ErrorIs(t, err, domsvc.ErrModelLoad)

	_, err = l.Load(context.Background(), "blank", "")
	assert.ErrorIs(t, err, domsvc.ErrModelLoad)
}

func TestHTTPModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/models/spike_hour":
			_ = json.NewEncoder(w).Encode(modelInfo{Name: "spike_hour", Features: []string{"hour", "dayofweek", "lag_24"}, Outputs: 1})
		case r.Method == http.MethodPost && r.URL.Path == "/models/spike_hour/predict":
			var x domsvc.FeatureMatrix
			if err := json.NewDecoder(r.Body).Decode(&x); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			preds := make([][]float64, len(x.Rows))
			for i, row := range x.Rows {
				preds[i] = []float64{row[0] * 2}
			}
			_ = json.NewEncoder(w).Encode(predictResponse{Predictions: preds})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	l := NewLoader(0, nil)
	m, err := l.Load(context.Background(), "spike_hour", srv.URL)
	require.NoError(t, err)

	out, err := m.Predict(context.Background(), domsvc.FeatureMatrix{
		Columns: []string{"hour", "dayofweek", "lag_24"},
		Rows:    [][]float64{{8, 1, 3}, {9, 1, 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{16}, {18}}, out)

	_, err = m.Predict(context.Background(), domsvc.FeatureMatrix{Columns: []string{"hour"}, Rows: [][]float64{{8}}})
	assert.ErrorIs(t, err, domsvc.ErrInference)

	_, err = l.Load(context.Background(), "daily_amount", srv.URL)
	assert.ErrorIs(t, err, domsvc.ErrModelLoad)
}
