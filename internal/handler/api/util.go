package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

func withTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), d)
}
