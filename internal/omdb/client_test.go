package omdb

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

func newTestServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}

func TestSearch_Success(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		assert.Equal(t, "batman", r.URL.Query().Get("s"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`{"Search":[{"Title":"Batman Begins","Year":"2005","imdbID":"tt0372784","Type":"movie","Poster":"N/A"}],"totalResults":"512","Response":"True"}`))
	})

	c, err := New("secret", WithBaseURL(srv.URL))
	require.NoError(t, err)

	res, err := c.Search(context.Background(), "batman", 2)
	require.NoError(t, err)
	require.Len(t, res.Search, 1)
	assert.Equal(t, "tt0372784", res.Search[0].IMDbID)
	assert.Equal(t, "512", res.TotalResults)
}

func TestSearch_ResponseFalseIsNotFound(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Response":"False","Error":"Movie not found!"}`))
	})
	c, _ := New("k", WithBaseURL(srv.URL))

	_, err := c.Search(context.Background(), "zzqx123", 1)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Movie not found!", nf.Message)
}

func TestSearch_ServerErrorIsStatusError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	c, _ := New("k", WithBaseURL(srv.URL))

	_, err := c.Search(context.Background(), "batman", 1)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)

	var nf *NotFoundError
	assert.False(t, errors.As(err, &nf))
}

func TestSearch_HonoursContextCancel(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	c, _ := New("k", WithBaseURL(srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.Search(ctx, "batman", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLookup_UsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "tt0372784", r.URL.Query().Get("i"))
		assert.Equal(t, "full", r.URL.Query().Get("plot"))
		_, _ = w.Write([]byte(`{"Title":"Batman Begins","Year":"2005","imdbID":"tt0372784","Plot":"After training...","Response":"True"}`))
	})

	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	c, _ := New("k", WithBaseURL(srv.URL), WithCache(fc, time.Hour))

	for range 3 {
		m, err := c.Lookup(context.Background(), "tt0372784")
		require.NoError(t, err)
		assert.Equal(t, "Batman Begins", m.Title)
	}
	assert.EqualValues(t, 1, hits.Load())
}

func TestLookup_NotFoundNotCached(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"Response":"False","Error":"Incorrect IMDb ID."}`))
	})
	fc, _ := cache.NewFileCache(t.TempDir())
	c, _ := New("k", WithBaseURL(srv.URL), WithCache(fc, time.Hour))

	for range 2 {
		_, err := c.Lookup(context.Background(), "tt0")
		var nf *NotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, "Incorrect IMDb ID.", nf.Message)
	}
	assert.EqualValues(t, 2, hits.Load())
}

func TestLookup_SharedFetchSurvivesOneCallerCancelling(t *testing.T) {
	var hits atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		started <- struct{}{}
		<-release
		_, _ = w.Write([]byte(`{"Title":"Batman Begins","Year":"2005","imdbID":"tt0372784","Response":"True"}`))
	})
	c, _ := New("k", WithBaseURL(srv.URL))

	type result struct {
		m   *Movie
		err error
	}
	ctxA, cancelA := context.WithCancel(context.Background())
	doneA := make(chan result, 1)
	go func() {
		m, err := c.Lookup(ctxA, "tt0372784")
		doneA <- result{m, err}
	}()
	<-started

	doneB := make(chan result, 1)
	go func() {
		m, err := c.Lookup(context.Background(), "tt0372784")
		doneB <- result{m, err}
	}()

	cancelA()
	select {
	case a := <-doneA:
		assert.ErrorIs(t, a.err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	// give B time to join the in-flight call before the upstream answers
	time.Sleep(50 * time.Millisecond)
	close(release)

	select {
	case b := <-doneB:
		require.NoError(t, b.err)
		assert.Equal(t, "Batman Begins", b.m.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("live caller did not return")
	}
	assert.EqualValues(t, 1, hits.Load())
}
