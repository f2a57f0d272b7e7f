package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"KiranaCash/internal/domain/models"
	svcmetrics "KiranaCash/internal/service/metrics"
)

// ForecastCache memoizes prediction results per (date, yesterday cash).
type ForecastCache struct {
	store     BytesCache
	ttl       time.Duration
	storeType string
}

func NewForecastCache(store BytesCache, ttl time.Duration, storeType string) *ForecastCache {
	return &ForecastCache{store: store, ttl: ttl, storeType: storeType}
}

// Key identifies one forecast input. Cash is keyed at currency precision.
func (c *ForecastCache) Key(date string, yesterdayCash float64) string {
	return fmt.Sprintf("forecast:%s:%s:%.2f", c.storeType, date, yesterdayCash)
}

func (c *ForecastCache) Get(ctx context.Context, date string, yesterdayCash float64) (*models.PredictionResult, bool) {
	b, ok, err := c.store.GetBytes(ctx, c.Key(date, yesterdayCash))
	if err != nil || !ok {
		svcmetrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	var res models.PredictionResult
	if err := json.Unmarshal(b, &res); err != nil {
		svcmetrics.CacheLookups.WithLabelValues("corrupt").Inc()
		return nil, false
	}
	svcmetrics.CacheLookups.WithLabelValues("hit").Inc()
	return &res, true
}

func (c *ForecastCache) Set(ctx context.Context, date string, yesterdayCash float64, res *models.PredictionResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode forecast: %w", err)
	}
	return c.store.SetBytes(ctx, c.Key(date, yesterdayCash), b, c.ttl)
}
