// Package yts lists recent releases from the YTS catalogue.
package yts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/briangreenhill/moviefinder/cache"
	"github.com/briangreenhill/moviefinder/internal/metrics"
)

const (
	DefaultBaseURL = "https://yts.mx/api/v2/"
	DefaultLimit   = 50
	DefaultTTL     = 15 * time.Minute
)

var ErrNoMovies = errors.New("yts: no movies found")

type Movie struct {
	ID               int      `json:"id"`
	IMDbCode         string   `json:"imdb_code"`
	Title            string   `json:"title"`
	TitleLong        string   `json:"title_long"`
	Year             int      `json:"year"`
	Rating           float64  `json:"rating"`
	Runtime          int      `json:"runtime"`
	Genres           []string `json:"genres"`
	Summary          string   `json:"summary"`
	Language         string   `json:"language"`
	MediumCoverImage string   `json:"medium_cover_image"`
	LargeCoverImage  string   `json:"large_cover_image"`
}

type listResponse struct {
	Status        string `json:"status"`
	StatusMessage string `json:"status_message"`
	Data          struct {
		MovieCount int     `json:"movie_count"`
		Limit      int     `json:"limit"`
		PageNumber int     `json:"page_number"`
		Movies     []Movie `json:"movies"`
	} `json:"data"`
}

// Page is one page of the listing.
type Page struct {
	Movies     []Movie `json:"movies"`
	MovieCount int     `json:"movieCount"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
}

type Client struct {
	http    *http.Client
	baseURL *url.URL
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

func New(opts ...Option) *Client {
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: u,
		ttl:     DefaultTTL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ListMovies returns a page of the latest uploads. limit <= 0 uses DefaultLimit.
func (c *Client) ListMovies(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	params := map[string]string{"page": strconv.Itoa(page), "limit": strconv.Itoa(limit)}

	var key string
	if c.cache != nil {
		key = c.cache.KeyFor("yts/list_movies", params)
		var cached Page
		if cache.GetJSON(ctx, c.cache, key, c.ttl, &cached) {
			return &cached, nil
		}
	}

	var out listResponse
	if err := c.get(ctx, "list_movies.json", params, &out); err != nil {
		return nil, err
	}
	if out.Status != "" && out.Status != "ok" {
		return nil, fmt.Errorf("yts: %s", out.StatusMessage)
	}
	if len(out.Data.Movies) == 0 {
		return nil, ErrNoMovies
	}

	p := &Page{Movies: out.Data.Movies, MovieCount: out.Data.MovieCount, Page: page, Limit: limit}
	if c.cache != nil {
		_ = cache.PutJSON(ctx, c.cache, key, p)
	}
	return p, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	u := c.baseURL.ResolveReference(&url.URL{Path: path, RawQuery: q.Encode()})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues("yts").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("yts", "error").Inc()
		return fmt.Errorf("yts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequestsTotal.WithLabelValues("yts", "status").Inc()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("yts %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("yts", "decode").Inc()
		return fmt.Errorf("decode yts response: %w", err)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues("yts", "ok").Inc()
	return nil
}
