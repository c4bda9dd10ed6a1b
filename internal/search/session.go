// Package search keeps the per-visitor search state for the movie browser:
// normalized queries, a TTL result cache, cancellation of superseded
// requests, debounced typing and pagination bounds.
package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/moviefinder/internal/metrics"
	"github.com/briangreenhill/moviefinder/internal/omdb"
)

const (
	MsgEmptyQuery   = "Please enter a search term."
	MsgConnectivity = "Could not reach the movie database. Check your connection and try again."
)

// visiblePages is how many page links the pagination window shows.
const visiblePages = 5

type Outcome int

const (
	OutcomeIdle Outcome = iota
	OutcomeSuccess
	OutcomeNotFound
	OutcomeTransportFailure
	OutcomeCancelled
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeTransportFailure:
		return "transport_failure"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeInvalid:
		return "invalid"
	default:
		return "idle"
	}
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Result is the resolved outcome of one search call. Failures are reported
// here rather than as errors.
type Result struct {
	Outcome      Outcome        `json:"outcome"`
	Term         string         `json:"term,omitempty"`
	Page         int            `json:"page"`
	Movies       []MovieSummary `json:"movies"`
	TotalResults int            `json:"totalResults"`
	TotalPages   int            `json:"totalPages"`
	Message      string         `json:"message,omitempty"`
	FromCache    bool           `json:"fromCache"`
}

// State is what the browser renders.
type State struct {
	Term         string         `json:"term"`
	Page         int            `json:"page"`
	TotalResults int            `json:"totalResults"`
	TotalPages   int            `json:"totalPages"`
	Pages        []int          `json:"pages,omitempty"`
	Movies       []MovieSummary `json:"movies"`
	Loading      bool           `json:"loading"`
	Error        string         `json:"error,omitempty"`
	Outcome      Outcome        `json:"outcome"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

type Options struct {
	CacheTTL time.Duration
	Debounce time.Duration
	PageSize int
	Logger   *zerolog.Logger
}

// Session owns one visitor's cache, in-flight request and view state.
type Session struct {
	source    Source
	cache     *Cache
	canceller Canceller
	debouncer *Debouncer
	pageSize  int
	log       zerolog.Logger

	base context.Context // parent of debounced searches
	stop context.CancelFunc

	mu    sync.Mutex
	gen   uint64 // bumped by every search; stale fetches compare against it
	state State
}

func NewSession(src Source, opts Options) *Session {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	base, stop := context.WithCancel(context.Background())
	return &Session{
		source:    src,
		cache:     NewCache(opts.CacheTTL),
		debouncer: NewDebouncer(opts.Debounce),
		pageSize:  opts.PageSize,
		log:       log,
		base:      base,
		stop:      stop,
		state:     State{Page: 1},
	}
}

// Search resolves raw/page from the cache or the source and commits the
// outcome to the view state unless a newer search has started since.
func (s *Session) Search(ctx context.Context, raw string, page int) Result {
	q, err := NewQuery(raw, page)
	if err != nil {
		r := Result{Outcome: OutcomeInvalid, Page: max(1, page), Message: MsgEmptyQuery}
		s.mu.Lock()
		s.gen++
		s.applyLocked(r)
		s.mu.Unlock()
		return r
	}
	key := q.Key()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	if e, ok := s.cache.Lookup(key); ok {
		r := s.resultFromEntry(q, e, true)
		s.applyLocked(r)
		s.mu.Unlock()
		metrics.SearchCacheHits.Inc()
		return r
	}
	tok := s.canceller.Begin(ctx)
	s.state.Term, s.state.Page = q.Term, q.Page
	s.state.Loading = true
	s.state.Error = ""
	s.mu.Unlock()
	defer s.canceller.Finish(tok)
	metrics.SearchCacheMisses.Inc()

	entry, err := s.fetch(tok.Context(), q)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.canceller.IsCancelled(tok) {
		metrics.SearchesCancelled.Inc()
		if gen == s.gen {
			// the caller went away and nothing replaced this search
			s.state.Loading = false
			s.state.UpdatedAt = time.Now()
			s.log.Debug().Str("key", key.String()).Msg("search abandoned by caller")
		} else {
			s.log.Debug().Str("key", key.String()).Msg("search superseded")
		}
		return Result{Outcome: OutcomeCancelled, Term: q.Term, Page: q.Page}
	}

	var r Result
	var nf *omdb.NotFoundError
	switch {
	case err == nil:
		s.cache.Store(key, entry)
		r = s.resultFromEntry(q, entry, false)
	case errors.As(err, &nf):
		r = Result{Outcome: OutcomeNotFound, Term: q.Term, Page: q.Page, Message: nf.Message}
	default:
		s.log.Warn().Err(err).Str("key", key.String()).Msg("search upstream failed")
		r = Result{Outcome: OutcomeTransportFailure, Term: q.Term, Page: q.Page, Message: MsgConnectivity}
	}

	if gen == s.gen {
		s.applyLocked(r)
	}
	return r
}

// Type feeds live keystrokes through the debounce gate. Only the last value
// typed before a pause is searched. Blank input drops any pending search.
func (s *Session) Type(raw string) {
	if strings.TrimSpace(raw) == "" {
		s.debouncer.Cancel()
		return
	}
	s.debouncer.Schedule(func() {
		s.Search(s.base, raw, 1)
	})
}

// Submit is the explicit search action. It drops any pending typed search
// and runs immediately. Pages below 1 mean the first page.
func (s *Session) Submit(ctx context.Context, raw string, page int) Result {
	s.debouncer.Cancel()
	return s.Search(ctx, raw, page)
}

// GoToPage re-runs the current term on another page, clamped to the known
// page count.
func (s *Session) GoToPage(ctx context.Context, page int) Result {
	s.mu.Lock()
	term, totalPages := s.state.Term, s.state.TotalPages
	s.mu.Unlock()
	return s.Search(ctx, term, ClampPage(page, totalPages))
}

// Retry repeats the current term and page.
func (s *Session) Retry(ctx context.Context) Result {
	s.mu.Lock()
	term, page := s.state.Term, s.state.Page
	s.mu.Unlock()
	return s.Search(ctx, term, page)
}

// Clear resets the view and abandons pending and in-flight searches. The
// result cache is kept.
func (s *Session) Clear() {
	s.debouncer.Cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceller.CancelAll()
	s.gen++
	s.state = State{Page: 1, UpdatedAt: time.Now()}
}

// Close stops all background work. The session must not be used afterwards.
func (s *Session) Close() {
	s.Clear()
	s.stop()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.Pages = NewPagination(st.Page, st.TotalResults, s.pageSize).Window(visiblePages)
	return st
}

// PruneCache drops expired cache entries.
func (s *Session) PruneCache() int { return s.cache.Prune() }

func (s *Session) fetch(ctx context.Context, q Query) (Entry, error) {
	if q.IsIDLookup() {
		m, err := s.source.Lookup(ctx, q.Term)
		if err != nil {
			return Entry{}, err
		}
		return Entry{Movies: []MovieSummary{m}, TotalResults: 1, FetchedAt: s.cache.now()}, nil
	}

	res, err := s.source.Search(ctx, q.Term, q.Page)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Movies: res.Movies, TotalResults: res.TotalResults, FetchedAt: s.cache.now()}, nil
}

func (s *Session) resultFromEntry(q Query, e Entry, fromCache bool) Result {
	return Result{
		Outcome:      OutcomeSuccess,
		Term:         q.Term,
		Page:         q.Page,
		Movies:       e.Movies,
		TotalResults: e.TotalResults,
		TotalPages:   TotalPages(e.TotalResults, s.pageSize),
		FromCache:    fromCache,
	}
}

// applyLocked commits r to the view state. Callers hold s.mu.
func (s *Session) applyLocked(r Result) {
	s.state.Loading = false
	s.state.Outcome = r.Outcome
	s.state.UpdatedAt = time.Now()

	switch r.Outcome {
	case OutcomeSuccess:
		s.state.Term, s.state.Page = r.Term, r.Page
		s.state.Movies = r.Movies
		s.state.TotalResults = r.TotalResults
		s.state.TotalPages = r.TotalPages
		s.state.Error = ""
	case OutcomeInvalid:
		// the last valid term stays so that retry still works
		s.state.Movies = nil
		s.state.Error = r.Message
	default:
		s.state.Term, s.state.Page = r.Term, r.Page
		s.state.Movies = nil
		s.state.TotalResults = 0
		s.state.TotalPages = 0
		s.state.Error = r.Message
	}
}
