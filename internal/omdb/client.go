package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/briangreenhill/moviefinder/cache"
	"github.com/briangreenhill/moviefinder/internal/metrics"
)

const DefaultBaseURL = "https://www.omdbapi.com/"

// DefaultLookupTTL is how long detail lookups are reused from the upstream cache.
const DefaultLookupTTL = time.Hour

type Client struct {
	http    *http.Client
	baseURL *url.URL
	apiKey  string

	cache cache.Cache // optional; nil means no cache
	ttl   time.Duration

	lookups singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil {
			c.baseURL = u
		}
	}
}

// WithCache caches detail lookups. Title searches are never cached here;
// that is the search session's job.
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
		return nil, errors.New("omdb: apiKey required")
	}
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: u,
		apiKey:  apiKey,
		ttl:     DefaultLookupTTL,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Search runs a free text title search. Pages start at 1.
func (c *Client) Search(ctx context.Context, term string, page int) (*SearchResponse, error) {
	if page <= 0 {
		page = 1
	}
	var out SearchResponse
	if err := c.doJSON(ctx, map[string]string{"s": term, "page": strconv.Itoa(page)}, &out); err != nil {
		return nil, err
	}
	if out.Response == "False" {
		return nil, &NotFoundError{Message: orDefault(out.Error, "No results found")}
	}
	return &out, nil
}

// Lookup fetches full details for an IMDb id.
func (c *Client) Lookup(ctx context.Context, id string) (*Movie, error) {
	key := ""
	if c.cache != nil {
		key = c.cache.KeyFor("omdb/title", map[string]string{"i": id, "plot": "full"})
		var cached Movie
		if cache.GetJSON(ctx, c.cache, key, c.ttl, &cached) {
			return &cached, nil
		}
	}

	// The shared fetch belongs to no single caller: one caller giving up must
	// not fail the others waiting on the same id.
	ch := c.lookups.DoChan(id, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		var m Movie
		if err := c.doJSON(fctx, map[string]string{"i": id, "plot": "full"}, &m); err != nil {
			return nil, err
		}
		if m.Response == "False" {
			return nil, &NotFoundError{Message: orDefault(m.Error, "Movie not found")}
		}
		if c.cache != nil {
			_ = cache.PutJSON(fctx, c.cache, key, &m)
		}
		return &m, nil
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("omdb lookup %s: %w", id, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Movie), nil
	}
}

func (c *Client) newReq(ctx context.Context, q map[string]string) (*http.Request, error) {
	u := *c.baseURL
	qq := u.Query()
	qq.Set("apikey", c.apiKey)
	for k, v := range q {
		qq.Set(k, v)
	}
	u.RawQuery = qq.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, q map[string]string, out any) error {
	req, err := c.newReq(ctx, q)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues("omdb").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("omdb", "error").Inc()
		return fmt.Errorf("omdb request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequestsTotal.WithLabelValues("omdb", "status").Inc()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("omdb", "decode").Inc()
		return fmt.Errorf("decode omdb response: %w", err)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues("omdb", "ok").Inc()
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
