package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	models "KiranaCash/internal/domain/models"
	domrepo "KiranaCash/internal/domain/repository"
	domsvc "KiranaCash/internal/domain/service"
	mid "KiranaCash/internal/middleware"
	"KiranaCash/internal/usecase"
	xlogger "KiranaCash/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeForecast struct {
	last usecase.ForecastParams
	err  error
}

func (f *fakeForecast) Forecast(_ context.Context, p usecase.ForecastParams) (*models.PredictionResult, error) {
	f.last = p
	if f.err != nil {
		return nil, f.err
	}
	return &models.PredictionResult{Date: "2024-06-15", TotalChange: 12.5, SpikeHour: 18, SpikeHourLabel: "18:00 - 19:00",
		Inventory: models.Inventory{{Value: 10, Count: 1}, {Value: 5, Count: 1}}, InventoryValue: 15, SafetyBuffer: 2.5}, nil
}

func (f *fakeForecast) Checklist(ctx context.Context, p usecase.ForecastParams) (*models.Checklist, error) {
	res, err := f.Forecast(ctx, p)
	if err != nil {
		return nil, err
	}
	return models.NewChecklist(res), nil
}

func (f *fakeForecast) Greedy(amount int) (models.Inventory, int, error) {
	return models.DefaultDenominations.Greedy(amount)
}

type fakeExporter struct{}

func (fakeExporter) Export(_ context.Context, kind domrepo.DatasetKind, _, _ time.Time, w io.Writer) (int, error) {
	_, err := fmt.Fprintf(w, "kind\n%s\n", kind)
	return 1, err
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func serve(t *testing.T, h interface{ RegisterRoutes(*echo.Echo) }, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	e := echo.New()
	h.RegisterRoutes(e)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestForecastEndpoint(t *testing.T) {
	f := &fakeForecast{}
	h := NewForecastEchoHandler(xlogger.Nop(), f, fakeExporter{})

	rec, env := serve(t, h, http.MethodGet, "/api/forecast?date=2024-06-15&yesterday_cash=1234.5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-06-15", f.last.Date.Format(models.DateLayout))
	require.NotNil(t, f.last.YesterdayCash)
	assert.Equal(t, 1234.5, *f.last.YesterdayCash)

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 12.5, res["Total_Change"])
	assert.Equal(t, "18:00 - 19:00", res["Spike_Hour"])

	_, _ = serve(t, h, http.MethodGet, "/api/forecast", "")
	assert.True(t, f.last.Date.IsZero())
	assert.Nil(t, f.last.YesterdayCash)
}

func TestForecastEndpointValidation(t *testing.T) {
	h := NewForecastEchoHandler(xlogger.Nop(), &fakeForecast{}, nil)
	rec, _ := serve(t, h, http.MethodGet, "/api/forecast?date=15-06-2024", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = serve(t, h, http.MethodGet, "/api/forecast?yesterday_cash=-3", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForecastErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: x", domsvc.ErrModelLoad), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: x", domsvc.ErrInference), http.StatusInternalServerError},
		{fmt.Errorf("%w: x", domsvc.ErrMalformedInput), http.StatusBadRequest},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := NewForecastEchoHandler(xlogger.Nop(), &fakeForecast{err: tc.err}, nil)
		rec, env := serve(t, h, http.MethodGet, "/api/forecast", "")
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
		assert.Equal(t, tc.code, env.Status)
	}

	h := NewForecastEchoHandler(xlogger.Nop(), &fakeForecast{err: fmt.Errorf("%w: x", domsvc.ErrModelLoad)}, nil)
	_, env := serve(t, h, http.MethodGet, "/api/forecast", "")
	assert.Contains(t, string(env.Data), "models not found, run training first")
}

func TestChecklistAndGreedyEndpoints(t *testing.T) {
	h := NewForecastEchoHandler(xlogger.Nop(), &fakeForecast{}, nil)
	rec, env := serve(t, h, http.MethodGet, "/api/forecast/checklist", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cl models.Checklist
	require.NoError(t, json.Unmarshal(env.Data, &cl))
	assert.Empty(t, cl.Notes)
	assert.Len(t, cl.Coins, 2)

	rec, env = serve(t, h, http.MethodGet, "/api/greedy?amount=2788", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"remainder":0`)

	rec, _ = serve(t, h, http.MethodGet, "/api/greedy?amount=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDatasetEndpoint(t *testing.T) {
	h := NewForecastEchoHandler(xlogger.Nop(), &fakeForecast{}, fakeExporter{})
	rec, _ := serve(t, h, http.MethodGet, "/api/dataset?from=2024-05-01&to=2024-06-01&kind=daily", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kind\ndaily\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "daily_2024-05-01_2024-06-01.csv")

	rec, _ = serve(t, h, http.MethodGet, "/api/dataset?from=2024-05-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type procFunc func(context.Context, *models.Transaction) error

func (f procFunc) Process(ctx context.Context, t *models.Transaction) error { return f(ctx, t) }

func TestIngestEndpoint(t *testing.T) {
	var got []string
	h := NewTransactionsEchoHandler(xlogger.Nop(), procFunc(func(_ context.Context, t *models.Transaction) error {
		if err := mid.Normalize(t); err != nil {
			return err
		}
		got = append(got, t.ID)
		return nil
	}))
	body := `[{"transaction_id":"a","timestamp":"2024-06-14T10:00:00Z","total_amount":80,"payment_method":"cash","change_given":20},
	          {"transaction_id":"b","total_amount":80,"payment_method":"cash"}]`
	rec, env := serve(t, h, http.MethodPost, "/api/transactions", body)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"a"}, got)
	assert.Contains(t, string(env.Data), `"accepted":1`)
	assert.Contains(t, string(env.Data), `"transaction_id":"b"`)

	rec, _ = serve(t, h, http.MethodPost, "/api/transactions", `{"not":"array"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	ok := NewHealthEchoHandler(map[string]HealthCheck{"store": func(context.Context) error { return nil }})
	rec, _ := serve(t, ok, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	down := NewHealthEchoHandler(map[string]HealthCheck{"store": func(context.Context) error { return errors.New("down") }})
	rec, env := serve(t, Routes{down}, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, string(env.Data), "down")
}
