package yts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/moviefinder/cache"
)

const listBody = `{"status":"ok","status_message":"Query was successful","data":{"movie_count":2,"limit":50,"page_number":1,"movies":[
{"id":1,"imdb_code":"tt0372784","title":"Batman Begins","year":2005,"rating":8.2,"medium_cover_image":"https://img/1.jpg"},
{"id":2,"imdb_code":"tt0468569","title":"The Dark Knight","year":2008,"rating":9.0,"medium_cover_image":"https://img/2.jpg"}]}}`

func TestListMovies(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/list_movies.json", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(listBody))
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	rc := cache.NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)

	c := New(WithBaseURL(srv.URL), WithCache(rc, time.Minute))
	for range 2 {
		p, err := c.ListMovies(context.Background(), 3, 0)
		require.NoError(t, err)
		require.Len(t, p.Movies, 2)
		assert.Equal(t, "The Dark Knight", p.Movies[1].Title)
		assert.Equal(t, 3, p.Page)
		assert.Equal(t, DefaultLimit, p.Limit)
	}
	assert.EqualValues(t, 1, hits.Load())
}

func TestListMovies_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","data":{"movie_count":0,"movies":[]}}`))
	}))
	defer srv.Close()

	_, err := New(WithBaseURL(srv.URL)).ListMovies(context.Background(), 999, 50)
	assert.ErrorIs(t, err, ErrNoMovies)
}

func TestListMovies_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(WithBaseURL(srv.URL)).ListMovies(context.Background(), 1, 50)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoMovies)
}
