package cache

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFor_StableAcrossParamOrder(t *testing.T) {
	a := KeyFor("/movies", map[string]string{"i": "tt0372784", "plot": "full"})
	b := KeyFor("/movies", map[string]string{"plot": "full", "i": "tt0372784"})
	assert.Equal(t, a, b)
	assert.NotContains(t, a, "/")
	assert.NotContains(t, a, "=")
}

func TestKeyFor_LongKeysAreHashed(t *testing.T) {
	key := KeyFor("/search", map[string]string{"q": strings.Repeat("x", 300)})
	assert.True(t, strings.HasPrefix(key, "hash_"), key)
}

func TestFileCache_RoundTrip(t *testing.T) {
	fc, err := NewFileCache(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := fc.KeyFor("omdb", map[string]string{"i": "tt0372784"})
	require.NoError(t, fc.Write(ctx, key, &Entry{Body: json.RawMessage(`{"Title":"Batman Begins"}`)}))

	entry, ok := fc.Read(ctx, key, time.Hour)
	require.True(t, ok)
	assert.JSONEq(t, `{"Title":"Batman Begins"}`, string(entry.Body))
	assert.WithinDuration(t, time.Now(), entry.FetchedAt, 5*time.Second)
}

func TestFileCache_Expired(t *testing.T) {
	fc, err := NewFileCache(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fc.Write(ctx, "k.json", &Entry{Body: json.RawMessage(`1`)}))
	time.Sleep(5 * time.Millisecond)

	entry, ok := fc.Read(ctx, "k.json", time.Millisecond)
	assert.False(t, ok)
	assert.NotNil(t, entry, "expired entries are still returned for inspection")

	_, ok = fc.Read(ctx, "missing.json", time.Hour)
	assert.False(t, ok)
}

func TestRedisCache_RoundTripAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	rc := NewRedisCache(client, time.Minute)
	ctx := context.Background()
	require.NoError(t, rc.Ping(ctx))

	key := rc.KeyFor("youtube/search", map[string]string{"q": "batman 2005"})
	require.NoError(t, PutJSON(ctx, rc, key, map[string]string{"videoId": "abc123"}))
	assert.True(t, mr.Exists(redisKeyPrefix+key))

	var got map[string]string
	require.True(t, GetJSON(ctx, rc, key, time.Hour, &got))
	assert.Equal(t, "abc123", got["videoId"])

	mr.FastForward(2 * time.Minute)
	assert.False(t, GetJSON(ctx, rc, key, time.Hour, &got))
}

func TestGetJSON_NilReader(t *testing.T) {
	var out struct{}
	assert.False(t, GetJSON(context.Background(), nil, "k", 0, &out))
	assert.NoError(t, PutJSON(context.Background(), nil, "k", out))
}
