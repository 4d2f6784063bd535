package apperror

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/seekkrr/landingpage/pkg/logger"
)

var statusCodes = map[int]string{
	http.StatusBadRequest:            "bad_request",
	http.StatusUnauthorized:          "unauthorized",
	http.StatusForbidden:             "forbidden",
	http.StatusNotFound:              "not_found",
	http.StatusMethodNotAllowed:      "method_not_allowed",
	http.StatusConflict:              "conflict",
	http.StatusRequestEntityTooLarge: "payload_too_large",
	http.StatusUnprocessableEntity:   "validation_error",
	http.StatusTooManyRequests:       "rate_limited",
}

// HTTPErrorHandler returns the echo error handler used by the API server and
// its tests. Every error response has the shape
//
//	{"message": "...", "error": {"code": "...", "message": "...", "details": {...}}}
func HTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := ErrInternal.Body()

		var appErr *Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			status, body = appErr.HTTPStatus, appErr.Body()
		case errors.As(err, &he):
			status = he.Code
			switch msg := he.Message.(type) {
			case map[string]any:
				body = msg
			case string:
				code, ok := statusCodes[status]
				if !ok {
					code = "error"
				}
				body = New(status, code, msg).Body()
			}
		}

		if status >= 500 {
			log.Error("request error",
				slog.Int("status", status),
				slog.String("path", c.Request().URL.Path),
				logger.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}
