package waitlist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Submit(t *testing.T) {
	var got Form
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, InterestPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	err := c.Submit(context.Background(), Form{Name: " Asha ", Phone: "+91 (987) 654-3210"})
	require.NoError(t, err)
	assert.Equal(t, Form{Name: "Asha", Phone: "+919876543210"}, got)
}

func TestClient_SubmitServerMessage(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{"json message", "application/json", `{"message":"Please enter your name.","error":{"code":"validation_error"}}`, "Please enter your name."},
		{"json without message", "application/json", `{"ok":false}`, MsgSubmitFailed},
		{"html body", "text/html", `<h1>Bad Gateway</h1>`, MsgSubmitFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewClient(srv.URL, time.Second).Submit(context.Background(), Form{Name: "A", Email: "a@b.co"})
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
			assert.Equal(t, tt.want, UserMessage(err))
		})
	}
}

func TestClient_SubmitNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewClient(url, time.Second).Submit(context.Background(), Form{Name: "A", Email: "a@b.co"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Equal(t, MsgNetwork, UserMessage(err))
}

func TestClient_AdminEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "s3cret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"ok":false,"error":"unauthorized","message":"Unauthorized"}`))
			return
		}
		switch r.URL.Path {
		case "/api/admin/interests":
			assert.Equal(t, "2026-01-01", r.URL.Query().Get("from"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true,"items":[{"id":2,"name":"B","email":"b@x.io","phone":"","created_at":"2026-01-02T00:00:00Z"}]}`))
		case "/api/admin/export":
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", `attachment; filename="interests-2026-01-03.csv"`)
			_, _ = w.Write([]byte("id,name,email,phone,created_at\n"))
		case "/api/health":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true,"status":"healthy"}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	_, err := NewClient(srv.URL, time.Second).ListInterests(ctx, Range{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Unauthorized", apiErr.Message)

	c := NewClient(srv.URL, time.Second).SetAdminToken("s3cret")

	items, err := c.ListInterests(ctx, Range{From: "2026-01-01"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ID)

	body, name, err := c.ExportCSV(ctx, Range{})
	require.NoError(t, err)
	assert.Equal(t, "interests-2026-01-03.csv", name)
	assert.Equal(t, "id,name,email,phone,created_at\n", string(body))

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.True(t, h.OK)
}
