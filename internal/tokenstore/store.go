// Package tokenstore keeps each visitor's bearer token on the server, keyed
// by the opaque session ID carried in the portal cookie.
package tokenstore

import (
	"context"
	"errors"
	"time"
)

// ErrNoSession is returned when a token is written without a session ID in
// the context.
var ErrNoSession = errors.New("no portal session in context")

// Store persists bearer tokens by session ID. A missing token is reported
// as an empty string with a nil error.
type Store interface {
	Get(ctx context.Context, sessionID string) (string, error)
	Set(ctx context.Context, sessionID, token string) error
	Clear(ctx context.Context, sessionID string) error
}

// Sweeper is implemented by stores that need expired entries removed
// periodically.
type Sweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionKey struct{}

// WithSessionID returns a context carrying the visitor's session ID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionIDFrom returns the session ID stored in ctx, or "".
func SessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Accessor reads and writes the token of the session found in the request
// context. It does not inspect the token.
type Accessor struct {
	store Store
}

// NewAccessor wraps a Store.
func NewAccessor(store Store) *Accessor {
	return &Accessor{store: store}
}

// GetToken returns the stored token, or "" when there is none.
func (a *Accessor) GetToken(ctx context.Context) (string, error) {
	id := SessionIDFrom(ctx)
	if id == "" {
		return "", nil
	}
	return a.store.Get(ctx, id)
}

// SetToken stores token for the current session.
func (a *Accessor) SetToken(ctx context.Context, token string) error {
	id := SessionIDFrom(ctx)
	if id == "" {
		return ErrNoSession
	}
	return a.store.Set(ctx, id, token)
}

// ClearToken removes the current session's token. Clearing without a
// session is a no-op.
func (a *Accessor) ClearToken(ctx context.Context) error {
	id := SessionIDFrom(ctx)
	if id == "" {
		return nil
	}
	return a.store.Clear(ctx, id)
}
