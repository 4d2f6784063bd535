package waitlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// User-facing fallbacks when the server gives no message.
const (
	MsgSubmitFailed = "Something went wrong. Please try again."
	MsgNetwork      = "Network error. Please check your connection."
)

// InterestPath is where submissions are posted.
const InterestPath = "/api/interest"

// ErrNetwork wraps transport failures: the request never got a response.
var ErrNetwork = errors.New("network error")

// APIError is a non-2xx response. Message is the server's own text when
// the body carried one, else MsgSubmitFailed.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// UserMessage turns a Submit error into the alert text shown to the visitor.
func UserMessage(err error) string {
	var se *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &se) && se.Message != "":
		return se.Message
	case errors.Is(err, ErrNetwork):
		return MsgNetwork
	default:
		return MsgSubmitFailed
	}
}

// Client talks to the interest API.
type Client struct {
	http *resty.Client
}

// NewClient returns a client for the API at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &Client{http: c}
}

// SetAdminToken sends token with the admin endpoints.
func (c *Client) SetAdminToken(token string) *Client {
	if token != "" {
		c.http.SetQueryParam("token", token)
	}
	return c
}

// Submit posts f's payload. It returns nil on 2xx, a *APIError on any
// other status and an error wrapping ErrNetwork when no response arrived.
func (c *Client) Submit(ctx context.Context, f Form) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(f.Payload()).
		Post(InterestPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if resp.IsSuccess() {
		return nil
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: messageFrom(resp.Body())}
}

// messageFrom reads {"message": "..."} out of an error body. Bodies that are
// not JSON fall back to the generic text.
func messageFrom(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Message == "" {
		return MsgSubmitFailed
	}
	return parsed.Message
}

// Health is the API health payload.
type Health struct {
	OK      bool   `json:"ok"`
	Status  string `json:"status,omitempty"`
	Version string `json:"version,omitempty"`
}

// Health calls GET /api/health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	resp, err := c.http.R().SetContext(ctx).SetResult(&h).Get("/api/health")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if !resp.IsSuccess() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: messageFrom(resp.Body())}
	}
	return &h, nil
}

// Interest is one stored submission as the admin API lists it.
type Interest struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"created_at"`
}

// Range limits admin queries by creation date, inclusive, as YYYY-MM-DD.
type Range struct {
	From string
	To   string
}

func (r Range) params() map[string]string {
	p := map[string]string{}
	if r.From != "" {
		p["from"] = r.From
	}
	if r.To != "" {
		p["to"] = r.To
	}
	return p
}

// ListInterests calls GET /api/admin/interests.
func (c *Client) ListInterests(ctx context.Context, r Range) ([]Interest, error) {
	var out struct {
		Items []Interest `json:"items"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(r.params()).
		SetResult(&out).
		Get("/api/admin/interests")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if !resp.IsSuccess() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: messageFrom(resp.Body())}
	}
	return out.Items, nil
}

// ExportCSV calls GET /api/admin/export and returns the CSV body and the
// filename the server suggested.
func (c *Client) ExportCSV(ctx context.Context, r Range) ([]byte, string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(r.params()).
		SetHeader("Accept", "text/csv").
		Get("/api/admin/export")
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, "", &APIError{StatusCode: resp.StatusCode(), Message: messageFrom(resp.Body())}
	}
	return resp.Body(), filenameFrom(resp.Header().Get("Content-Disposition")), nil
}

func filenameFrom(disposition string) string {
	_, after, ok := strings.Cut(disposition, "filename=")
	if !ok {
		return ""
	}
	return strings.Trim(strings.TrimSpace(after), `"`)
}
