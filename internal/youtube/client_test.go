package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/moviefinder/cache"
)

func TestFindTrailer(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Batman Begins 2005 official trailer", q.Get("q"))
		assert.Equal(t, "1", q.Get("maxResults"))
		assert.Equal(t, "video", q.Get("type"))
		assert.Equal(t, "yt-key", q.Get("key"))
		_, _ = w.Write([]byte(`{"items":[{"id":{"kind":"youtube#video","videoId":"neY2xVmOfUM"}}]}`))
	}))
	defer srv.Close()

	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	c, err := New("yt-key", WithBaseURL(srv.URL), WithCache(fc, time.Hour))
	require.NoError(t, err)

	for range 2 {
		id, err := c.FindTrailer(context.Background(), "Batman Begins", "2005")
		require.NoError(t, err)
		assert.Equal(t, "neY2xVmOfUM", id)
	}
	assert.EqualValues(t, 1, hits.Load(), "second lookup served from cache")
}

func TestFindTrailer_NoItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c, _ := New("k", WithBaseURL(srv.URL))
	_, err := c.FindTrailer(context.Background(), "Obscure", "1901")
	assert.True(t, errors.Is(err, ErrNoTrailer))
}

func TestFindTrailer_QuotaExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c, _ := New("k", WithBaseURL(srv.URL))
	_, err := c.FindTrailer(context.Background(), "Batman", "1989")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoTrailer))
	assert.Contains(t, err.Error(), "403")
}
