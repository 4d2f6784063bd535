package apperror

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, method string, err error) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	handler := HTTPErrorHandler(slog.Default())

	req := httptest.NewRequest(method, "/api/interest", nil)
	rec := httptest.NewRecorder()
	handler(err, e.NewContext(req, rec))

	if method == http.MethodHead {
		return rec, nil
	}
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHTTPErrorHandler_AppError(t *testing.T) {
	rec, resp := serve(t, http.MethodPost, NewValidation(map[string]string{
		"email": "Please enter a valid email address.",
	}, "name", "email"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Please enter a valid email address.", resp["message"])

	errObj := resp["error"].(map[string]any)
	assert.Equal(t, "validation_error", errObj["code"])
	assert.Equal(t, map[string]any{"email": "Please enter a valid email address."}, errObj["details"])
}

func TestHTTPErrorHandler_EchoStringError(t *testing.T) {
	tests := []struct {
		status   int
		wantCode string
	}{
		{http.StatusBadRequest, "bad_request"},
		{http.StatusNotFound, "not_found"},
		{http.StatusMethodNotAllowed, "method_not_allowed"},
		{http.StatusTooManyRequests, "rate_limited"},
		{http.StatusTeapot, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			rec, resp := serve(t, http.MethodGet, echo.NewHTTPError(tt.status, "nope"))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "nope", resp["message"])
			assert.Equal(t, tt.wantCode, resp["error"].(map[string]any)["code"])
		})
	}
}

func TestHTTPErrorHandler_StructuredEchoError(t *testing.T) {
	rec, resp := serve(t, http.MethodGet, ErrForbidden.ToEchoError())

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied", resp["message"])
}

func TestHTTPErrorHandler_UnknownError(t *testing.T) {
	rec, resp := serve(t, http.MethodPost, errors.New("connection reset"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", resp["error"].(map[string]any)["code"])
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestHTTPErrorHandler_Head(t *testing.T) {
	rec, _ := serve(t, http.MethodHead, ErrNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}
