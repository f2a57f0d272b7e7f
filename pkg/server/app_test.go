package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"KiranaCash/internal/domain/models"
	mid "KiranaCash/internal/middleware"
	"KiranaCash/pkg/config"
	xlogger "KiranaCash/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCloser struct{ n int }

func (c *countingCloser) Close() error {
	c.n++
	return errors.New("already closed")
}

type nopMetrics struct{}

func (nopMetrics) RecordForecast(string, float64) {}
func (nopMetrics) RecordError(string)             {}
func (nopMetrics) RecordLatency(string, float64)  {}
func (nopMetrics) RecordIngested(string, int)     {}

type nopProc struct{}

func (nopProc) Process(context.Context, *models.Transaction) error { return nil }

func TestAppStartShutdown(t *testing.T) {
	cfg, err := config.Parse([]byte(`
server:
  port: 18099
forecast:
  models:
    daily_amount: models/daily_amount.json
    denomination_split: models/denomination_split.json
    spike_hour: models/spike_hour.json
`))
	require.NoError(t, err)

	closer := &countingCloser{}
	pipe := mid.NewIngestPipeline(nopProc{}, nopMetrics{})
	app := New(cfg, xlogger.Nop(), nil, WithPipelines(pipe, nil), WithCloser("store", closer), WithConsumer(nil, nil))
	require.NoError(t, app.Start(context.Background()))
	assert.Equal(t, ":18099", app.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, app.Shutdown(ctx))
	assert.Equal(t, 1, closer.n)
}
