package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func unavailable(c echo.Context, backend string) error {
	return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": backend + " is not configured"})
}

// RequireStore rejects the request when no network storage is configured.
func RequireStore(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.(*AppContext).App.Store == nil {
			return unavailable(c, "network storage")
		}
		return next(c)
	}
}

// RequireQueue rejects the request when no message queue is configured.
func RequireQueue(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.(*AppContext).App.Queue == nil {
			return unavailable(c, "queue")
		}
		return next(c)
	}
}

// RequireS3 rejects the request when no object storage is configured.
func RequireS3(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		app := c.(*AppContext).App
		if app.S3 == nil || app.Bucket == "" {
			return unavailable(c, "object storage")
		}
		return next(c)
	}
}
