package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestLimiterRefill(t *testing.T) {
	l := New()
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("k", 2, 1))
	assert.True(t, l.Allow("k", 2, 1))
	assert.False(t, l.Allow("k", 2, 1))
	assert.True(t, l.Allow("other", 2, 1))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("k", 2, 1))
	assert.False(t, l.Allow("k", 2, 1))
}

func TestLimiterMiddleware(t *testing.T) {
	e := echo.New()
	l := New()
	e.GET("/api/forecast", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, l.Middleware(1, 0))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/forecast", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}
