package api

import (
	"context"
	"net/http"
	"time"

	xhttp "KiranaCash/pkg/http"

	"github.com/labstack/echo/v4"
)

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

// HealthEchoHandler reports liveness and dependency health.
type HealthEchoHandler struct {
	checks map[string]HealthCheck
}

func NewHealthEchoHandler(checks map[string]HealthCheck) *HealthEchoHandler {
	return &HealthEchoHandler{checks: checks}
}

func (h *HealthEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

func (h *HealthEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	code := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	return xhttp.DataResponse(c, code, status)
}

// Routes combines several route sets into one xhttp.Handler.
type Routes []xhttp.Handler

func (r Routes) RegisterRoutes(e *echo.Echo) {
	for _, h := range r {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
}
