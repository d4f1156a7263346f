package assistant

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/npezzotti/blend/internal/config"
	"github.com/npezzotti/blend/internal/testutil"
	"github.com/npezzotti/blend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, endpoint, key string) *GeminiClient {
	return NewGeminiClient(config.AssistantConfig{
		Endpoint: endpoint,
		APIKey:   key,
		Model:    "gemini-test",
		Timeout:  time.Second,
	}, testutil.TestLogger(t))
}

func TestGenerate(t *testing.T) {
	tcases := []struct {
		name     string
		status   int
		body     string
		expected string
		err      error
	}{
		{
			name:     "joins candidate parts",
			status:   http.StatusOK,
			body:     `{"candidates":[{"content":{"parts":[{"text":"Hello "},{"text":"there"}]}}]}`,
			expected: "Hello there",
		},
		{
			name:   "empty reply",
			status: http.StatusOK,
			body:   `{"candidates":[]}`,
			err:    types.ErrUpstreamUnavailable,
		},
		{
			name:   "quota exceeded",
			status: http.StatusTooManyRequests,
			body:   `{}`,
			err:    types.ErrUpstreamUnavailable,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
				assert.Equal(t, "secret", r.URL.Query().Get("key"))

				body, _ := io.ReadAll(r.Body)
				assert.JSONEq(t, `{"contents":[{"parts":[{"text":"recommend a movie"}]}]}`, string(body))

				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, "secret")
			text, err := c.Generate(context.Background(), "recommend a movie")
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, text)
		})
	}
}

func TestGenerateNotConfigured(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", "")
	assert.False(t, c.Enabled())

	_, err := c.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, types.ErrUpstreamUnavailable)
}

func TestGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "secret")
	c.timeout = 50 * time.Millisecond

	_, err := c.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, types.ErrUpstreamUnavailable)
}
