package store

import (
	"context"
	"time"

	"docvault/internal/models"
)

// DocumentStore is the metadata and chunk persistence surface behind the blob store.
type DocumentStore interface {
	CreatePendingDocument(ctx context.Context, doc *models.Document) error
	DocumentIDExists(ctx context.Context, id string) (bool, error)
	PutChunk(ctx context.Context, docID string, seq int, data []byte) error
	PublishDocument(ctx context.Context, docID string, sizeBytes int64, chunkCount int, digest string) error
	DiscardPendingDocument(ctx context.Context, docID string) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ReadChunk(ctx context.Context, docID string, seq int) ([]byte, error)
	ListLiveDocuments(ctx context.Context, after *ListCursor, limit int) ([]models.Document, error)
	MarkDocumentDeleted(ctx context.Context, id string, deletedAt time.Time) (bool, error)
	PurgeChunks(ctx context.Context, docID string, now time.Time) (int64, error)
	AcquireReadLease(ctx context.Context, docID string, expiresAt, now time.Time) (string, bool, error)
	ReleaseReadLease(ctx context.Context, leaseID string) error
	DeleteExpiredLeases(ctx context.Context, now time.Time) (int64, error)
	ListSweepCandidates(ctx context.Context, pendingBefore time.Time, limit int) ([]models.Document, error)
	DocumentStats(ctx context.Context) (DocumentStats, error)
	Ping(ctx context.Context) error
}

// SessionStore persists browser sessions for the password gate.
type SessionStore interface {
	CreateSession(ctx context.Context, tokenHash string, expiresAt, createdAt time.Time) error
	SessionActive(ctx context.Context, tokenHash string, now time.Time) (bool, error)
	RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

var (
	_ DocumentStore = (*Store)(nil)
	_ SessionStore  = (*Store)(nil)
)
