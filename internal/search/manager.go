package search

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/moviefinder/internal/metrics"
)

// DefaultIdleTimeout is how long an untouched session is kept.
const DefaultIdleTimeout = 30 * time.Minute

type managed struct {
	session  *Session
	lastSeen time.Time
}

// Manager hands out one Session per browser session id and closes the ones
// that have gone idle.
type Manager struct {
	source Source
	opts   Options
	idle   time.Duration
	log    zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*managed
}

func NewManager(src Source, opts Options, idle time.Duration) *Manager {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Manager{
		source:   src,
		opts:     opts,
		idle:     idle,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*managed),
	}
}

// Get returns the session for id, creating it on first use.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[id]; ok {
		e.lastSeen = m.now()
		return e.session
	}
	s := NewSession(m.source, m.opts)
	m.sessions[id] = &managed{session: s, lastSeen: m.now()}
	metrics.ActiveSearchSessions.Set(float64(len(m.sessions)))
	return s
}

// Drop closes and forgets the session for id.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	metrics.ActiveSearchSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	if ok {
		e.session.Close()
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes idle sessions and prunes expired cache entries from the rest.
// It returns the number of sessions closed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	var idle []*Session
	var live []*Session
	for id, e := range m.sessions {
		if m.now().Sub(e.lastSeen) >= m.idle {
			idle = append(idle, e.session)
			delete(m.sessions, id)
			continue
		}
		live = append(live, e.session)
	}
	metrics.ActiveSearchSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	pruned := 0
	for _, s := range live {
		pruned += s.PruneCache()
	}
	if len(idle) > 0 || pruned > 0 {
		m.log.Debug().Int("closed", len(idle)).Int("pruned", pruned).Msg("search sessions swept")
	}
	return len(idle)
}

// Run sweeps every interval until ctx is done, then closes all sessions.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case <-t.C:
			m.Sweep()
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*managed)
	metrics.ActiveSearchSessions.Set(0)
	m.mu.Unlock()

	for _, e := range sessions {
		e.session.Close()
	}
}
