package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/npezzotti/blend/internal/config"
	"github.com/npezzotti/blend/internal/testutil"
	"github.com/npezzotti/blend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, endpoint, key string) *TMDBClient {
	return NewTMDBClient(config.CatalogConfig{
		Endpoint:     endpoint,
		APIKey:       key,
		ImageBaseURL: "https://img.test/w500/",
		Timeout:      time.Second,
	}, testutil.TestLogger(t))
}

func TestPosterURL(t *testing.T) {
	tcases := []struct {
		name     string
		status   int
		body     string
		expected string
		err      error
	}{
		{
			name:     "first result poster",
			status:   http.StatusOK,
			body:     `{"results":[{"title":"Heat","poster_path":"/heat.jpg"},{"title":"Heat 2","poster_path":"/h2.jpg"}]}`,
			expected: "https://img.test/w500/heat.jpg",
		},
		{
			name:   "no results",
			status: http.StatusOK,
			body:   `{"results":[]}`,
		},
		{
			name:   "upstream error",
			status: http.StatusInternalServerError,
			body:   `{}`,
			err:    types.ErrUpstreamUnavailable,
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `not json`,
			err:    types.ErrUpstreamUnavailable,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/search/movie", r.URL.Path)
				assert.Equal(t, "Heat", r.URL.Query().Get("query"))
				assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, "secret")
			poster, err := c.PosterURL(context.Background(), "Heat")
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, poster)
		})
	}
}

func TestPosterURLDisabled(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", "")
	assert.False(t, c.Enabled())

	poster, err := c.PosterURL(context.Background(), "Heat")
	assert.NoError(t, err)
	assert.Empty(t, poster)
}

func TestPosterURLBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "secret")
	for range 8 {
		_, err := c.PosterURL(context.Background(), "Heat")
		assert.ErrorIs(t, err, types.ErrUpstreamUnavailable)
	}

	assert.Equal(t, int32(5), calls.Load(), "breaker stops calling the upstream after consecutive failures")
}
