package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateSession records a browser session by token hash.
func (s *Store) CreateSession(ctx context.Context, tokenHash string, expiresAt, createdAt time.Time) error {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return fmt.Errorf("token hash is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, token_hash, expires_at, revoked_at, created_at)
		VALUES (?, ?, ?, NULL, ?)
	`, uuid.NewString(), tokenHash, formatTime(expiresAt), formatTime(createdAt))
	return err
}

// SessionActive reports whether a non-revoked, unexpired session has tokenHash.
func (s *Store) SessionActive(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return false, nil
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM sessions
		WHERE token_hash = ?
		  AND revoked_at IS NULL
		  AND expires_at > ?
		LIMIT 1
	`, tokenHash, formatTime(now)).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RevokeSessionByTokenHash marks one session revoked by token hash.
func (s *Store) RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET revoked_at = ?
		WHERE token_hash = ?
		  AND revoked_at IS NULL
	`, formatTime(revokedAt), tokenHash)
	return err
}

// DeleteExpiredSessions removes sessions that expired or were revoked before cutoff.
func (s *Store) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE expires_at <= ?
		   OR (revoked_at IS NOT NULL AND revoked_at <= ?)
	`, formatTime(cutoff), formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
