package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studentportal/internal/database"
	"studentportal/internal/models"
)

// TokenSessionRepository handles database operations for stored bearer tokens
type TokenSessionRepository struct {
	db database.DBTX
}

// NewTokenSessionRepository creates a new token session repository
func NewTokenSessionRepository(db database.DBTX) *TokenSessionRepository {
	return &TokenSessionRepository{db: db}
}

// Save inserts or replaces the sealed token for a session
func (r *TokenSessionRepository) Save(ctx context.Context, sessionID, sealedToken string, expiresAt time.Time) error {
	query := r.db.GetDialect().UpsertTokenSessionQuery()
	if _, err := r.db.ExecContext(ctx, query, sessionID, sealedToken, expiresAt.UTC()); err != nil {
		return fmt.Errorf("failed to save token session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID. A missing session returns nil, nil.
func (r *TokenSessionRepository) Get(ctx context.Context, sessionID string) (*models.TokenSession, error) {
	query := `
		SELECT id, sealed_token, expires_at, created_at, updated_at
		FROM token_sessions
		WHERE id = ?
	`
	session := &models.TokenSession{}
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID,
		&session.SealedToken,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token session: %w", err)
	}

	return session, nil
}

// Delete removes a session from the database
func (r *TokenSessionRepository) Delete(ctx context.Context, sessionID string) error {
	query := "DELETE FROM token_sessions WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to delete token session: %w", err)
	}
	return nil
}

// DeleteExpired removes all expired sessions and reports how many went
func (r *TokenSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := "DELETE FROM token_sessions WHERE expires_at < ?"
	result, err := r.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired token sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// DeleteAll removes every stored session and reports how many went
func (r *TokenSessionRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM token_sessions")
	if err != nil {
		return 0, fmt.Errorf("failed to delete token sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}
