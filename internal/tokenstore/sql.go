package tokenstore

import (
	"context"
	"errors"
	"log"
	"time"

	"studentportal/internal/models"
	"studentportal/internal/security"
)

// sessionRepository is the subset of the token session repository used here
type sessionRepository interface {
	Save(ctx context.Context, sessionID, sealedToken string, expiresAt time.Time) error
	Get(ctx context.Context, sessionID string) (*models.TokenSession, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SQLStore keeps sealed tokens in the token_sessions table.
type SQLStore struct {
	repo   sessionRepository
	sealer *security.Sealer
	ttl    time.Duration
}

// NewSQLStore creates a SQL-backed store. Rows expire after ttl.
func NewSQLStore(repo sessionRepository, sealer *security.Sealer, ttl time.Duration) *SQLStore {
	return &SQLStore{repo: repo, sealer: sealer, ttl: ttl}
}

func (s *SQLStore) Get(ctx context.Context, sessionID string) (string, error) {
	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session == nil || session.IsExpired() {
		return "", nil
	}

	token, err := s.sealer.Open(session.SealedToken)
	if errors.Is(err, security.ErrUnsealable) {
		// Sealed under a rotated secret; the visitor has to sign in again.
		log.Printf("Discarding unreadable token for session %s", sessionID)
		if err := s.repo.Delete(ctx, sessionID); err != nil {
			log.Printf("Failed to delete unreadable session: %v", err)
		}
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *SQLStore) Set(ctx context.Context, sessionID, token string) error {
	sealed, err := s.sealer.Seal(token)
	if err != nil {
		return err
	}
	return s.repo.Save(ctx, sessionID, sealed, time.Now().Add(s.ttl))
}

func (s *SQLStore) Clear(ctx context.Context, sessionID string) error {
	return s.repo.Delete(ctx, sessionID)
}

func (s *SQLStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.DeleteExpired(ctx, now)
}
