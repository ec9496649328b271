package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

func TestClient_Post(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/echo", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["text"]})
	}))
	defer srv.Close()

	c := New("test", srv.URL, time.Second, http.Header{"Authorization": {"Bearer k"}})

	var out struct{ Echo string }
	require.NoError(t, c.Post(context.Background(), "/v1/echo", map[string]string{"text": "hi"}, &out))
	assert.Equal(t, "hi", out.Echo)
}

func TestClient_GetWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := New("test", srv.URL, time.Second, nil)
	assert.NoError(t, c.Get(context.Background(), "/models", nil))
	assert.Equal(t, srv.URL, c.BaseURL())
}

func TestClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/denied":
			w.WriteHeader(http.StatusUnauthorized)
		case "/garbled":
			_, _ = w.Write([]byte("{"))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	c := New("test", srv.URL, time.Second, nil)
	ctx := context.Background()

	assert.ErrorIs(t, c.Get(ctx, "/denied", nil), domain.ErrConfiguration)
	assert.ErrorIs(t, c.Get(ctx, "/down", nil), domain.ErrTransient)

	var out map[string]any
	assert.ErrorContains(t, c.Get(ctx, "/garbled", &out), "decode response")

	srv.Close()
	assert.ErrorIs(t, c.Get(ctx, "/gone", nil), domain.ErrTransient)
}

func TestClient_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New("test", srv.URL, time.Second, nil).Get(ctx, "/", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrTransient)
}
