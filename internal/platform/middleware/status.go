package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/nrft/nrft/internal/platform/apperr"
)

// statusOf predicts the response status for err before the error handler
// has written it.
func statusOf(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return apperr.KindOf(err).HTTPStatus()
}
