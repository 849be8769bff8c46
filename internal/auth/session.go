// Package auth tracks whether the visitor behind a request is signed in and
// guards routes that need a signed-in user or a student.
package auth

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"studentportal/internal/api"
	"studentportal/internal/models"
)

// State is the verification state of a Session.
type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "loading"
	}
}

// Verifier fetches the profile of the user owning the stored token.
type Verifier interface {
	GetCurrentUser(ctx context.Context) (*models.User, error)
}

// Session is the auth state of one page load. It starts in StateLoading and
// verification moves it to StateAuthenticated or StateUnauthenticated at
// most once. Login and Logout are the only later transitions.
type Session struct {
	verifier Verifier
	ctx      context.Context
	cancel   context.CancelFunc

	once       sync.Once
	done       chan struct{}
	mu         sync.Mutex
	state      State
	user       *models.User
	overridden bool
	settledAt  time.Time
}

// newSession keeps ctx's values but not its cancellation, so a check that
// outlives the page load still finishes.
func newSession(ctx context.Context, verifier Verifier) *Session {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	return &Session{
		verifier: verifier,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    StateLoading,
	}
}

// Resolve starts verification on first use and waits for it until ctx is
// done. A wait that ends early returns StateLoading; verification keeps
// running and a later Resolve sees its result.
func (s *Session) Resolve(ctx context.Context) State {
	if state := s.State(); state != StateLoading {
		return state
	}

	s.once.Do(func() {
		go s.verify()
	})

	select {
	case <-s.done:
	case <-ctx.Done():
	}
	return s.State()
}

func (s *Session) verify() {
	defer close(s.done)
	defer s.cancel()

	user, err := s.verifier.GetCurrentUser(s.ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settledAt = time.Now()
	if s.overridden || s.state != StateLoading {
		return
	}
	if err != nil {
		if s.ctx.Err() == nil && !errors.Is(err, api.ErrNoToken) {
			log.Printf("Session verification failed (%s): %v", api.Classify(err), err)
		}
		s.state = StateUnauthenticated
		return
	}
	if user == nil {
		s.state = StateUnauthenticated
		return
	}
	s.state = StateAuthenticated
	s.user = user
}

// settledBefore reports whether verification finished before t.
func (s *Session) settledBefore(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.settledAt.IsZero() && s.settledAt.Before(t)
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the verified user, or nil unless authenticated.
func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated {
		return nil
	}
	return s.user
}

// Login records a successful sign-in made during this page load.
func (s *Session) Login(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overridden = true
	s.state = StateAuthenticated
	s.user = user
}

// Logout records a sign-out made during this page load.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overridden = true
	s.state = StateUnauthenticated
	s.user = nil
}
