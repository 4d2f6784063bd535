package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error is an API error carrying the HTTP status it maps to.
type Error struct {
	HTTPStatus int
	Code       string
	Message    string
	Internal   error
	Details    map[string]any
}

func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Internal
}

// Body renders the error the way clients read it: a top-level message for
// simple consumers (the waitlist form reads only that) and a structured
// error object.
func (e *Error) Body() map[string]any {
	errBody := map[string]any{
		"code":    e.Code,
		"message": e.Message,
	}
	if len(e.Details) > 0 {
		errBody["details"] = e.Details
	}
	return map[string]any{
		"message": e.Message,
		"error":   errBody,
	}
}

// ToEchoError converts the error to an echo.HTTPError.
func (e *Error) ToEchoError() *echo.HTTPError {
	return echo.NewHTTPError(e.HTTPStatus, e.Body())
}

// WithInternal returns a copy with err attached.
func (e *Error) WithInternal(err error) *Error {
	c := *e
	c.Internal = err
	return &c
}

// WithMessage returns a copy with a custom message.
func (e *Error) WithMessage(message string) *Error {
	c := *e
	c.Message = message
	return &c
}

// WithDetails returns a copy with details attached.
func (e *Error) WithDetails(details map[string]any) *Error {
	c := *e
	c.Details = details
	return &c
}

func New(status int, code, message string) *Error {
	return &Error{
		HTTPStatus: status,
		Code:       code,
		Message:    message,
	}
}

var (
	ErrUnauthorized = New(http.StatusUnauthorized, "unauthorized", "Unauthorized")
	ErrForbidden    = New(http.StatusForbidden, "forbidden", "Access denied")
	ErrNotFound     = New(http.StatusNotFound, "not_found", "Resource not found")

	ErrBadRequest  = New(http.StatusBadRequest, "bad_request", "Invalid request")
	ErrValidation  = New(http.StatusUnprocessableEntity, "validation_error", "Validation failed")
	ErrRateLimited = New(http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again later.")

	ErrInternal = New(http.StatusInternalServerError, "internal_error", "Something went wrong. Please try again.")
	ErrDatabase = New(http.StatusInternalServerError, "database_error", "Database operation failed")
)

// ToHTTPError converts any error to a status and response body.
// Errors that are not *Error become a generic internal error.
func ToHTTPError(err error) (int, map[string]any) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus, appErr.Body()
	}
	return ErrInternal.HTTPStatus, ErrInternal.Body()
}

func NewBadRequest(message string) *Error {
	return ErrBadRequest.WithMessage(message)
}

// NewValidation reports per-field messages. The first message in fields
// order becomes the top-level message.
func NewValidation(fields map[string]string, order ...string) *Error {
	details := make(map[string]any, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	msg := ErrValidation.Message
	for _, f := range order {
		if m, ok := fields[f]; ok {
			msg = m
			break
		}
	}
	return ErrValidation.WithMessage(msg).WithDetails(details)
}

func NewInternal(message string, err error) *Error {
	return &Error{
		HTTPStatus: http.StatusInternalServerError,
		Code:       "internal_error",
		Message:    message,
		Internal:   err,
	}
}
