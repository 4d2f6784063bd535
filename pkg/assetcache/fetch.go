package assetcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Response is what a Fetcher hands back for one attempt.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher retrieves one asset. A transport failure is an error; a non-2xx
// status is a Response the caller judges.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// HTTPFetcher fetches assets relative to an origin.
type HTTPFetcher struct {
	client *resty.Client
}

// NewHTTPFetcher returns a fetcher rooted at origin, e.g.
// "https://seekkrr.com/static/".
func NewHTTPFetcher(origin string, timeout time.Duration) *HTTPFetcher {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(origin, "/")).
		SetHeader("Accept", "image/svg+xml,image/*;q=0.9,*/*;q=0.5")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "/" + strings.TrimPrefix(url, "/")
	}
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return &Response{
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}

// FSFetcher serves assets from a file system, typically the embedded static
// directory. Missing files map to 404.
type FSFetcher struct {
	fsys fs.FS
}

func NewFSFetcher(fsys fs.FS) *FSFetcher {
	return &FSFetcher{fsys: fsys}
}

func (f *FSFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := strings.TrimPrefix(path.Clean("/"+url), "/")
	data, err := fs.ReadFile(f.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return &Response{StatusCode: http.StatusNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return &Response{
		StatusCode:  http.StatusOK,
		ContentType: mime.TypeByExtension(path.Ext(name)),
		Body:        data,
	}, nil
}
