package interest

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/seekkrr/landingpage/pkg/apperror"
	"github.com/seekkrr/landingpage/pkg/waitlist"
)

// Handler handles HTTP requests for interests
type Handler struct {
	svc *Service
	now func() time.Time
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// Create handles POST /api/interest
//
// The body is read as JSON whatever the Content-Type; an empty body is an
// empty form and fails validation.
func (h *Handler) Create(c echo.Context) error {
	var form waitlist.Form
	if err := (&echo.DefaultJSONSerializer{}).Deserialize(c, &form); err != nil && !isEmptyBody(err) {
		return apperror.NewBadRequest("Invalid request body")
	}

	if _, err := h.svc.Submit(c.Request().Context(), form); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func isEmptyBody(err error) bool {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		err = he.Internal
	}
	return errors.Is(err, io.EOF)
}

// List handles GET /api/admin/interests
func (h *Handler) List(c echo.Context) error {
	f, err := ParseFilter(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return err
	}
	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}

	total, err := h.svc.Count(c.Request().Context())
	if err != nil {
		return err
	}

	resp := ListResponse{OK: true, Items: make([]InterestDTO, 0, len(items)), Total: total}
	for i := range items {
		resp.Items = append(resp.Items, items[i].ToDTO())
	}
	return c.JSON(http.StatusOK, resp)
}

// Export handles GET /api/admin/export
func (h *Handler) Export(c echo.Context) error {
	f, err := ParseFilter(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return err
	}
	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, items); err != nil {
		return apperror.NewInternal("Failed to build export", err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+ExportFilename(h.now()))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// RequireAdminToken checks the token query parameter against token. An
// empty token leaves the admin endpoints open.
func RequireAdminToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return next(c)
			}
			got := c.QueryParam("token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]any{
					"ok":      false,
					"error":   "unauthorized",
					"message": apperror.ErrUnauthorized.Message,
				})
			}
			return next(c)
		}
	}
}
