package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/moviefinder/internal/omdb"
)

type searchFunc func(ctx context.Context, term string, page int) (PageResult, error)

type fakeSource struct {
	mu     sync.Mutex
	calls  []string
	search searchFunc
	lookup func(ctx context.Context, id string) (MovieSummary, error)
}

func (f *fakeSource) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeSource) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSource) Search(ctx context.Context, term string, page int) (PageResult, error) {
	f.record(fmt.Sprintf("s:%s:%d", term, page))
	return f.search(ctx, term, page)
}

func (f *fakeSource) Lookup(ctx context.Context, id string) (MovieSummary, error) {
	f.record("i:" + id)
	return f.lookup(ctx, id)
}

func summaries(prefix string, n int) []MovieSummary {
	out := make([]MovieSummary, n)
	for i := range out {
		out[i] = MovieSummary{ID: fmt.Sprintf("tt%d", i), Title: fmt.Sprintf("%s %d", prefix, i), PosterURL: NoPoster}
	}
	return out
}

func pages(total int) searchFunc {
	return func(_ context.Context, term string, _ int) (PageResult, error) {
		return PageResult{Movies: summaries(term, 10), TotalResults: total}, nil
	}
}

func newTestSession(t *testing.T, src Source) *Session {
	t.Helper()
	s := NewSession(src, Options{CacheTTL: 5 * time.Minute, Debounce: 50 * time.Millisecond})
	t.Cleanup(s.Close)
	return s
}

func TestSession_FreshSearch(t *testing.T) {
	src := &fakeSource{search: func(context.Context, string, int) (PageResult, error) {
		return PageResult{Movies: summaries("action", 20), TotalResults: 200}, nil
	}}
	s := newTestSession(t, src)

	r := s.Search(context.Background(), "action", 1)
	require.Equal(t, OutcomeSuccess, r.Outcome)
	assert.False(t, r.FromCache)
	assert.Len(t, r.Movies, 20)
	assert.Equal(t, 200, r.TotalResults)
	assert.Equal(t, 20, r.TotalPages)

	st := s.State()
	assert.Equal(t, 1, st.Page)
	assert.Equal(t, 20, st.TotalPages)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, st.Pages)

	_, ok := s.cache.Lookup(Key{Term: "action", Page: 1})
	assert.True(t, ok, "result cached under action-1")
}

func TestSession_CacheHitSkipsSource(t *testing.T) {
	src := &fakeSource{search: pages(200)}
	s := newTestSession(t, src)

	first := s.Search(context.Background(), "action", 1)
	require.Equal(t, OutcomeSuccess, first.Outcome)

	second := s.Search(context.Background(), "  ACTION ", 1)
	require.Equal(t, OutcomeSuccess, second.Outcome)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Movies, second.Movies)
	assert.Len(t, src.Calls(), 1)
}

func TestSession_ExpiredEntryRefetches(t *testing.T) {
	src := &fakeSource{search: pages(30)}
	s := newTestSession(t, src)
	now := time.Now()
	s.cache.now = func() time.Time { return now }

	s.Search(context.Background(), "action", 1)
	now = now.Add(5 * time.Minute)
	r := s.Search(context.Background(), "action", 1)

	assert.False(t, r.FromCache)
	assert.Len(t, src.Calls(), 2)
}

func TestSession_TypingIsDebounced(t *testing.T) {
	src := &fakeSource{search: pages(10)}
	s := newTestSession(t, src)

	for _, v := range []string{"a", "ac", "act"} {
		s.Type(v)
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(src.Calls()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"s:act:1"}, src.Calls())
	assert.Equal(t, "act", s.State().Term)
}

func TestSession_BlankTypingCancelsPending(t *testing.T) {
	src := &fakeSource{search: pages(10)}
	s := newTestSession(t, src)

	s.Type("act")
	s.Type("   ")
	time.Sleep(120 * time.Millisecond)
	assert.Empty(t, src.Calls())
}

func TestSession_SubmitLaterPageDropsPendingTyping(t *testing.T) {
	src := &fakeSource{search: pages(45)}
	s := newTestSession(t, src)

	s.Type("foo")
	r := s.Submit(context.Background(), "bar", 2)
	require.Equal(t, OutcomeSuccess, r.Outcome)

	time.Sleep(120 * time.Millisecond)
	st := s.State()
	assert.Equal(t, "bar", st.Term)
	assert.Equal(t, 2, st.Page)
	assert.Equal(t, []string{"s:bar:2"}, src.Calls())
}

func TestSession_CallerGoneClearsLoading(t *testing.T) {
	started := make(chan struct{})
	src := &fakeSource{search: func(ctx context.Context, _ string, _ int) (PageResult, error) {
		close(started)
		<-ctx.Done()
		return PageResult{}, ctx.Err()
	}}
	s := newTestSession(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() { done <- s.Search(ctx, "batman", 1) }()
	<-started
	assert.True(t, s.State().Loading)

	cancel()
	r := <-done
	assert.Equal(t, OutcomeCancelled, r.Outcome)
	st := s.State()
	assert.False(t, st.Loading)
	assert.Equal(t, "batman", st.Term)
	assert.Empty(t, st.Error)
}

func TestSession_SupersededSearchIsCancelled(t *testing.T) {
	started := make(chan struct{})
	src := &fakeSource{search: func(ctx context.Context, term string, _ int) (PageResult, error) {
		if term == "batman" {
			close(started)
			<-ctx.Done()
			return PageResult{}, ctx.Err()
		}
		return PageResult{Movies: summaries(term, 3), TotalResults: 3}, nil
	}}
	s := newTestSession(t, src)

	done := make(chan Result, 1)
	go func() { done <- s.Search(context.Background(), "batman", 1) }()
	<-started

	r := s.Search(context.Background(), "superman", 1)
	require.Equal(t, OutcomeSuccess, r.Outcome)

	batman := <-done
	assert.Equal(t, OutcomeCancelled, batman.Outcome)

	st := s.State()
	assert.Equal(t, "superman", st.Term)
	assert.Equal(t, OutcomeSuccess, st.Outcome)
	assert.Empty(t, st.Error)

	_, ok := s.cache.Lookup(Key{Term: "batman", Page: 1})
	assert.False(t, ok, "cancelled search is not cached")
	_, ok = s.cache.Lookup(Key{Term: "superman", Page: 1})
	assert.True(t, ok)
}

func TestSession_LateResponseAfterSupersedeIsDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	src := &fakeSource{search: func(_ context.Context, term string, _ int) (PageResult, error) {
		if term == "batman" {
			close(started)
			<-release // ignores cancellation
			return PageResult{Movies: summaries(term, 1), TotalResults: 1}, nil
		}
		return PageResult{Movies: summaries(term, 2), TotalResults: 2}, nil
	}}
	s := newTestSession(t, src)

	done := make(chan Result, 1)
	go func() { done <- s.Search(context.Background(), "batman", 1) }()
	<-started

	s.Search(context.Background(), "superman", 1)
	close(release)

	assert.Equal(t, OutcomeCancelled, (<-done).Outcome)
	assert.Equal(t, "superman", s.State().Term)
	_, ok := s.cache.Lookup(Key{Term: "batman", Page: 1})
	assert.False(t, ok)
}

func TestSession_CacheHitWinsOverSlowerFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	src := &fakeSource{search: func(_ context.Context, term string, _ int) (PageResult, error) {
		if term == "batman" {
			close(started)
			<-release
		}
		return PageResult{Movies: summaries(term, 1), TotalResults: 1}, nil
	}}
	s := newTestSession(t, src)

	s.Search(context.Background(), "action", 1)

	done := make(chan Result, 1)
	go func() { done <- s.Search(context.Background(), "batman", 1) }()
	<-started

	hit := s.Search(context.Background(), "action", 1)
	require.True(t, hit.FromCache)
	close(release)

	// the slow fetch completes and is cached, but does not repaint the view
	assert.Equal(t, OutcomeSuccess, (<-done).Outcome)
	assert.Equal(t, "action", s.State().Term)
	_, ok := s.cache.Lookup(Key{Term: "batman", Page: 1})
	assert.True(t, ok)
}

func TestSession_NotFoundIsNotCached(t *testing.T) {
	src := &fakeSource{search: func(context.Context, string, int) (PageResult, error) {
		return PageResult{}, &omdb.NotFoundError{Message: "Movie not found!"}
	}}
	s := newTestSession(t, src)

	r := s.Search(context.Background(), "zzqx123", 1)
	assert.Equal(t, OutcomeNotFound, r.Outcome)
	assert.Equal(t, "Movie not found!", r.Message)

	st := s.State()
	assert.Equal(t, "Movie not found!", st.Error)
	assert.Empty(t, st.Movies)
	assert.Equal(t, 0, st.TotalPages)

	r = s.Retry(context.Background())
	assert.Equal(t, OutcomeNotFound, r.Outcome)
	assert.Len(t, src.Calls(), 2, "retry goes upstream again")
	assert.Equal(t, 0, s.cache.Len())
}

func TestSession_TransportFailure(t *testing.T) {
	src := &fakeSource{search: func(context.Context, string, int) (PageResult, error) {
		return PageResult{}, errors.New("dial tcp: connection refused")
	}}
	s := newTestSession(t, src)

	r := s.Search(context.Background(), "batman", 1)
	assert.Equal(t, OutcomeTransportFailure, r.Outcome)
	assert.Equal(t, MsgConnectivity, r.Message)
	assert.Equal(t, MsgConnectivity, s.State().Error)
	assert.Equal(t, 0, s.cache.Len())
}

func TestSession_EmptyQuery(t *testing.T) {
	src := &fakeSource{search: pages(10)}
	s := newTestSession(t, src)

	r := s.Search(context.Background(), "   ", 1)
	assert.Equal(t, OutcomeInvalid, r.Outcome)
	assert.Equal(t, MsgEmptyQuery, s.State().Error)
	assert.Empty(t, src.Calls())
}

func TestSession_IDLookup(t *testing.T) {
	src := &fakeSource{lookup: func(_ context.Context, id string) (MovieSummary, error) {
		return MovieSummary{ID: id, Title: "Batman Begins", Year: "2005", PosterURL: NoPoster}, nil
	}}
	s := newTestSession(t, src)

	r := s.Search(context.Background(), "tt0372784", 1)
	require.Equal(t, OutcomeSuccess, r.Outcome)
	require.Len(t, r.Movies, 1)
	assert.Equal(t, "tt0372784", r.Movies[0].ID)
	assert.Equal(t, 1, r.TotalResults)
	assert.Equal(t, 1, r.TotalPages)
	assert.Equal(t, []string{"i:tt0372784"}, src.Calls())
}

func TestSession_GoToPageClamps(t *testing.T) {
	src := &fakeSource{search: pages(45)}
	s := newTestSession(t, src)

	s.Search(context.Background(), "action", 1)
	r := s.GoToPage(context.Background(), 99)
	assert.Equal(t, 5, r.Page)
	r = s.GoToPage(context.Background(), 0)
	assert.Equal(t, 1, r.Page)
	assert.True(t, r.FromCache)
	assert.Equal(t, []string{"s:action:1", "s:action:5"}, src.Calls())
}

func TestSession_ClearKeepsCache(t *testing.T) {
	src := &fakeSource{search: pages(10)}
	s := newTestSession(t, src)

	s.Search(context.Background(), "action", 1)
	s.Clear()

	st := s.State()
	assert.Empty(t, st.Term)
	assert.Empty(t, st.Movies)
	assert.Equal(t, 1, s.cache.Len())
}

func TestManager_SessionsAreIsolatedAndSwept(t *testing.T) {
	src := &fakeSource{search: pages(10)}
	m := NewManager(src, Options{}, time.Minute)
	now := time.Now()
	m.now = func() time.Time { return now }

	a := m.Get("a")
	assert.Same(t, a, m.Get("a"))
	b := m.Get("b")
	assert.NotSame(t, a, b)

	a.Search(context.Background(), "action", 1)
	assert.Equal(t, 0, b.cache.Len(), "caches are per session")

	now = now.Add(30 * time.Second)
	m.Get("b")
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())
	assert.Same(t, b, m.Get("b"))

	m.Drop("b")
	assert.Equal(t, 0, m.Len())
}

func TestManager_RunClosesOnCancel(t *testing.T) {
	m := NewManager(&fakeSource{search: pages(1)}, Options{}, 0)
	m.Get("a")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, 0, m.Len())
}
