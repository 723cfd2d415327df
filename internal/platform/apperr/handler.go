package apperr

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorHandler renders every error as {"message", "details"} and logs 5xx
// causes. Install as echo.Echo.HTTPErrorHandler.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		he, ok := err.(*echo.HTTPError)
		if !ok {
			he = HTTP(err)
		}

		body, ok := he.Message.(Body)
		if !ok {
			msg, isString := he.Message.(string)
			if !isString {
				msg = http.StatusText(he.Code)
			}
			body = Body{Message: msg}
		}

		if he.Code >= http.StatusInternalServerError {
			cause := he.Internal
			if cause == nil {
				cause = err
			}
			logger.Error().Err(cause).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Int("status", he.Code).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(he.Code)
			return
		}
		_ = c.JSON(he.Code, body)
	}
}
