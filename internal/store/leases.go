package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"docvault/internal/models"
)

// AcquireReadLease pins the chunks of a live document until expiresAt or
// until the lease is released. It reports false, storing nothing, when the
// document is not live. Leases live in the database so that every process
// sharing the file honours them.
func (s *Store) AcquireReadLease(ctx context.Context, docID string, expiresAt, now time.Time) (string, bool, error) {
	leaseID := uuid.NewString()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO blob_leases (id, blob_id, expires_at, created_at)
		SELECT ?, id, ?, ? FROM blobs WHERE id = ? AND state = ?
	`, leaseID, formatTime(expiresAt), formatTime(now), docID, string(models.DocumentStateLive))
	if err != nil {
		return "", false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return "", false, err
	}
	if affected == 0 {
		return "", false, nil
	}
	return leaseID, true, nil
}

// ReleaseReadLease drops one lease. Releasing an unknown lease is a no-op.
func (s *Store) ReleaseReadLease(ctx context.Context, leaseID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blob_leases WHERE id = ?`, leaseID)
	return err
}

// DeleteExpiredLeases removes leases left behind by readers that never
// released them, such as a crashed process.
func (s *Store) DeleteExpiredLeases(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM blob_leases WHERE expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
