package middleware

import (
	"time"

	xlogger "KiranaCash/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one structured line per request. 5xx responses are
// logged at error level.
func RequestLogging(l *xlogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []xlogger.Field{
				xlogger.String("method", c.Request().Method),
				xlogger.String("uri", c.Request().RequestURI),
				xlogger.String("remote", c.RealIP()),
				xlogger.Int("status", status),
				xlogger.Duration("latency", time.Since(start)),
			}
			if status >= 500 {
				l.Error("http request", fields...)
			} else {
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}
