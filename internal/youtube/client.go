// Package youtube finds official trailers through the YouTube Data API.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/briangreenhill/moviefinder/cache"
	"github.com/briangreenhill/moviefinder/internal/metrics"
)

const DefaultBaseURL = "https://www.googleapis.com/youtube/v3/"

// DefaultTTL is how long a trailer id is reused.
const DefaultTTL = 24 * time.Hour

var ErrNoTrailer = errors.New("youtube: no trailer found")

type searchResponse struct {
	Items []struct {
		ID struct {
			Kind    string `json:"kind"`
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type Client struct {
	http    *http.Client
	baseURL *url.URL
	apiKey  string
	cache   cache.Cache
	ttl     time.Duration
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		if u, err := url.Parse(raw); err == nil {
			c.baseURL = u
		}
	}
}

func WithCache(rc cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = rc
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("youtube: apiKey required")
	}
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: u,
		apiKey:  apiKey,
		ttl:     DefaultTTL,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// FindTrailer returns the video id of the best "official trailer" match for
// a title and year.
func (c *Client) FindTrailer(ctx context.Context, title, year string) (string, error) {
	q := strings.TrimSpace(strings.TrimSpace(title+" "+year) + " official trailer")

	var key string
	if c.cache != nil {
		key = c.cache.KeyFor("youtube/search", map[string]string{"q": strings.ToLower(q)})
		var id string
		if cache.GetJSON(ctx, c.cache, key, c.ttl, &id) {
			return id, nil
		}
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", q)
	params.Set("maxResults", "1")
	params.Set("type", "video")
	params.Set("key", c.apiKey)

	u := c.baseURL.ResolveReference(&url.URL{Path: "search", RawQuery: params.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues("youtube").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("youtube", "error").Inc()
		return "", fmt.Errorf("youtube search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequestsTotal.WithLabelValues("youtube", "status").Inc()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("youtube search: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("youtube", "decode").Inc()
		return "", fmt.Errorf("decode youtube response: %w", err)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues("youtube", "ok").Inc()

	if len(out.Items) == 0 || out.Items[0].ID.VideoID == "" {
		return "", ErrNoTrailer
	}
	id := out.Items[0].ID.VideoID
	if c.cache != nil {
		_ = cache.PutJSON(ctx, c.cache, key, id)
	}
	return id, nil
}
