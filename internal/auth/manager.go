package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"studentportal/internal/models"
	"studentportal/internal/tokenstore"
)

const (
	defaultGrace = 3 * time.Second

	// How long a finished check waits for the loading page's refresh
	parkedTTL = 10 * time.Second
)

// ErrNotInitialized is returned by Require'd routes before Initialize.
var ErrNotInitialized = errors.New("auth manager not initialized")

// Sweeper removes expired stored sessions.
type Sweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Manager creates per-request Sessions and enforces Guards.
type Manager struct {
	verifier Verifier
	grace    time.Duration
	loading  http.HandlerFunc

	sweeper       Sweeper
	sweepInterval time.Duration

	mu      sync.Mutex
	ready   bool
	stop    chan struct{}
	stopped sync.WaitGroup

	// checks still running when their page load gave up, by portal session ID
	parkedMu sync.Mutex
	parked   map[string]*Session
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithGrace sets how long a guard waits for verification before it shows
// the loading page.
func WithGrace(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.grace = d
	}
}

// WithLoadingPage sets the handler that renders the loading indicator.
func WithLoadingPage(h http.HandlerFunc) ManagerOption {
	return func(m *Manager) {
		m.loading = h
	}
}

// WithSweeper removes expired stored sessions every interval while the
// manager is running.
func WithSweeper(s Sweeper, interval time.Duration) ManagerOption {
	return func(m *Manager) {
		m.sweeper = s
		m.sweepInterval = interval
	}
}

// NewManager creates a Manager. Call Initialize before serving requests and
// Dispose on shutdown.
func NewManager(verifier Verifier, opts ...ManagerOption) *Manager {
	m := &Manager{
		verifier: verifier,
		grace:    defaultGrace,
		loading:  defaultLoadingPage,
		parked:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize checks the manager's dependencies and starts the sweeper.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready {
		return nil
	}
	if m.verifier == nil {
		return fmt.Errorf("auth manager: verifier is required")
	}
	if m.grace <= 0 {
		return fmt.Errorf("auth manager: grace must be positive")
	}
	if m.sweeper != nil && m.sweepInterval <= 0 {
		return fmt.Errorf("auth manager: sweep interval must be positive")
	}

	m.stop = make(chan struct{})
	if m.sweeper != nil {
		m.sweep(ctx)
		m.stopped.Add(1)
		go m.runSweeper()
	}
	m.ready = true
	return nil
}

// Dispose stops background work and waits for it to finish.
func (m *Manager) Dispose() {
	m.mu.Lock()
	if !m.ready {
		m.mu.Unlock()
		return
	}
	m.ready = false
	close(m.stop)
	m.mu.Unlock()

	m.stopped.Wait()

	m.parkedMu.Lock()
	for id, s := range m.parked {
		s.cancel()
		delete(m.parked, id)
	}
	m.parkedMu.Unlock()
}

func (m *Manager) isReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

func (m *Manager) runSweeper() {
	defer m.stopped.Done()

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep(context.Background())
		}
	}
}

func (m *Manager) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := m.sweeper.DeleteExpired(ctx, time.Now())
	if err != nil {
		log.Printf("Error cleaning up expired sessions: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Removed %d expired sessions", n)
	}
}

type sessionKey struct{}

// Begin returns the request's Session and the request with it attached.
// A check parked for the visitor by an earlier page load is picked up;
// otherwise a new Session starts in StateLoading.
func (m *Manager) Begin(r *http.Request) (*Session, *http.Request) {
	if s := SessionFromContext(r.Context()); s != nil {
		return s, r
	}
	s := m.unpark(tokenstore.SessionIDFrom(r.Context()))
	if s == nil {
		s = newSession(r.Context(), m.verifier)
	}
	return s, r.WithContext(context.WithValue(r.Context(), sessionKey{}, s))
}

// park keeps a running check so the visitor's next page load can use its
// result. Checks that finished long ago are dropped.
func (m *Manager) park(sessionID string, s *Session) {
	if sessionID == "" {
		return
	}

	m.parkedMu.Lock()
	defer m.parkedMu.Unlock()

	cutoff := time.Now().Add(-parkedTTL)
	for id, p := range m.parked {
		if p.settledBefore(cutoff) {
			delete(m.parked, id)
		}
	}
	m.parked[sessionID] = s
}

// unpark returns the visitor's parked check. A finished check is handed out
// once; a running one stays parked for later page loads.
func (m *Manager) unpark(sessionID string) *Session {
	if sessionID == "" {
		return nil
	}

	m.parkedMu.Lock()
	defer m.parkedMu.Unlock()

	s, ok := m.parked[sessionID]
	if !ok {
		return nil
	}
	if s.State() != StateLoading {
		delete(m.parked, sessionID)
		if s.settledBefore(time.Now().Add(-parkedTTL)) {
			return nil
		}
	}
	return s
}

// forget drops s if it is the visitor's parked check.
func (m *Manager) forget(sessionID string, s *Session) {
	m.parkedMu.Lock()
	defer m.parkedMu.Unlock()
	if m.parked[sessionID] == s {
		delete(m.parked, sessionID)
	}
}

// SessionFromContext returns the Session attached by Begin, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// UserFromContext returns the verified user of the request, or nil.
func UserFromContext(ctx context.Context) *models.User {
	if s := SessionFromContext(ctx); s != nil {
		return s.User()
	}
	return nil
}

// Require wraps next with guard g. Exactly one of the loading page, a
// redirect or next is written for each request. When verification outlasts
// the grace period the loading page is shown and the check keeps running;
// the page's refresh picks up its result. Without a portal session there is
// nothing to refresh into, so the guard waits for the check instead.
func (m *Manager) Require(g Guard, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.isReady() {
			log.Printf("Guarded request to %s rejected: %v", r.URL.Path, ErrNotInitialized)
			http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
			return
		}

		session, r := m.Begin(r)

		sessionID := tokenstore.SessionIDFrom(r.Context())
		var state State
		if sessionID == "" {
			state = session.Resolve(r.Context())
		} else {
			waitCtx, cancel := context.WithTimeout(r.Context(), m.grace)
			state = session.Resolve(waitCtx)
			cancel()
			if state == StateLoading {
				m.park(sessionID, session)
			} else {
				m.forget(sessionID, session)
			}
		}

		switch g.Decide(state, session.User()) {
		case RenderLoading:
			m.loading(w, r)
		case Redirect:
			http.Redirect(w, r, g.RedirectURL(r), http.StatusFound)
		case RenderChildren:
			next.ServeHTTP(w, r)
		}
	})
}

func defaultLoadingPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `<!DOCTYPE html><html><head><meta http-equiv="refresh" content="2"><title>Loading</title></head>`+
		`<body><div class="spinner" role="status" aria-label="Loading"></div></body></html>`)
}
