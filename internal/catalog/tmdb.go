// Package catalog looks up movie posters in the TMDB catalog.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/npezzotti/blend/internal/config"
	"github.com/npezzotti/blend/internal/types"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

type searchResponse struct {
	Results []struct {
		Title      string `json:"title"`
		PosterPath string `json:"poster_path"`
	} `json:"results"`
}

type TMDBClient struct {
	log          zerolog.Logger
	http         *http.Client
	endpoint     string
	apiKey       string
	imageBaseURL string
	timeout      time.Duration
	cb           *gobreaker.CircuitBreaker[string]
}

func NewTMDBClient(cfg config.CatalogConfig, logger zerolog.Logger) *TMDBClient {
	log := logger.With().Str("component", "catalog").Logger()

	return &TMDBClient{
		log:          log,
		http:         &http.Client{},
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:       cfg.APIKey,
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
		timeout:      cfg.Timeout,
		cb: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        "tmdb",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("circuit breaker state changed")
			},
		}),
	}
}

// Enabled reports whether an API key is configured.
func (c *TMDBClient) Enabled() bool {
	return c.apiKey != ""
}

// PosterURL returns the poster of the best match for title. It returns an
// empty string when the catalog is disabled or has no poster for the title.
func (c *TMDBClient) PosterURL(ctx context.Context, title string) (string, error) {
	if !c.Enabled() {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	poster, err := c.cb.Execute(func() (string, error) {
		return c.search(ctx, title)
	})
	if err != nil {
		return "", fmt.Errorf("%w: tmdb: %v", types.ErrUpstreamUnavailable, err)
	}

	return poster, nil
}

func (c *TMDBClient) search(ctx context.Context, title string) (string, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("query", title)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/search/movie?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}

	if len(body.Results) == 0 || body.Results[0].PosterPath == "" {
		return "", nil
	}

	return c.imageBaseURL + body.Results[0].PosterPath, nil
}
