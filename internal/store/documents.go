package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"docvault/internal/models"
)

const documentColumns = "id, filename, content_type, size_bytes, chunk_size, chunk_count, digest, state, created_at, deleted_at"

// ListCursor positions keyset pagination over live documents, newest first.
type ListCursor struct {
	CreatedAt time.Time
	ID        string
}

// DocumentStats summarizes live documents.
type DocumentStats struct {
	Count      int   `json:"count"`
	TotalBytes int64 `json:"total_bytes"`
}

// CreatePendingDocument inserts a staging row that readers cannot see.
func (s *Store) CreatePendingDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	if strings.TrimSpace(doc.ID) == "" {
		return fmt.Errorf("document id is required")
	}
	if doc.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be > 0")
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.State = models.DocumentStatePending

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (id, filename, content_type, size_bytes, chunk_size, chunk_count, digest, state, created_at, deleted_at)
		VALUES (?, ?, ?, 0, ?, 0, NULL, ?, ?, NULL)
	`, doc.ID, doc.Filename, doc.ContentType, doc.ChunkSize, string(doc.State), formatTime(doc.CreatedAt))
	return err
}

// DocumentIDExists reports whether any row, including tombstones, uses id.
func (s *Store) DocumentIDExists(ctx context.Context, id string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM blobs WHERE id = ? LIMIT 1", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PutChunk stores one chunk of a pending document.
func (s *Store) PutChunk(ctx context.Context, docID string, seq int, data []byte) error {
	if seq < 0 {
		return fmt.Errorf("chunk seq must be >= 0")
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO blob_chunks (blob_id, seq, data)
		SELECT id, ?, ? FROM blobs WHERE id = ? AND state = ?
	`, seq, data, docID, string(models.DocumentStatePending))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("document %s is not pending", docID)
	}
	return nil
}

// PublishDocument makes a pending document visible once every chunk is present.
func (s *Store) PublishDocument(ctx context.Context, docID string, sizeBytes int64, chunkCount int, digest string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var stored int
	var storedBytes int64
	if err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(LENGTH(data)), 0) FROM blob_chunks WHERE blob_id = ?
	`, docID).Scan(&stored, &storedBytes); err != nil {
		return err
	}
	if stored != chunkCount || storedBytes != sizeBytes {
		err = fmt.Errorf("document %s has %d chunks (%d bytes), expected %d (%d bytes)", docID, stored, storedBytes, chunkCount, sizeBytes)
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE blobs
		SET state = ?, size_bytes = ?, chunk_count = ?, digest = ?
		WHERE id = ? AND state = ?
	`, string(models.DocumentStateLive), sizeBytes, chunkCount, nullIfEmpty(digest), docID, string(models.DocumentStatePending))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		err = fmt.Errorf("document %s is not pending", docID)
		return err
	}

	return tx.Commit()
}

// DiscardPendingDocument removes a pending row and its staged chunks.
func (s *Store) DiscardPendingDocument(ctx context.Context, docID string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM blob_chunks WHERE blob_id = ?", docID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM blobs WHERE id = ? AND state = ?", docID, string(models.DocumentStatePending)); err != nil {
		return err
	}
	return tx.Commit()
}

// GetDocument returns one document row in any state, or nil when absent.
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM blobs WHERE id = ?`, id)
	return scanDocument(row)
}

// ReadChunk returns the bytes of one chunk, or nil when absent.
func (s *Store) ReadChunk(ctx context.Context, docID string, seq int) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM blob_chunks WHERE blob_id = ? AND seq = ?", docID, seq).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// ListLiveDocuments returns up to limit live documents strictly after cursor,
// ordered by created_at then id, both descending.
func (s *Store) ListLiveDocuments(ctx context.Context, after *ListCursor, limit int) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM blobs WHERE state = ?`
	args := []any{string(models.DocumentStateLive)}
	if after != nil {
		created := formatTime(after.CreatedAt)
		query += ` AND (created_at < ? OR (created_at = ? AND id < ?))`
		args = append(args, created, created, after.ID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docs = append(docs, *doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// MarkDocumentDeleted tombstones a live document. It reports false when no
// live document had that id.
func (s *Store) MarkDocumentDeleted(ctx context.Context, id string, deletedAt time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE blobs SET state = ?, deleted_at = ?
		WHERE id = ? AND state = ?
	`, string(models.DocumentStateDeleted), nullTime(&deletedAt), id, string(models.DocumentStateLive))
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// PurgeChunks removes every chunk of a tombstoned document unless a read
// lease that is still valid at now pins it. A zero count with a nil error
// means there was nothing to purge or a reader still holds the chunks.
func (s *Store) PurgeChunks(ctx context.Context, docID string, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM blob_chunks
		WHERE blob_id = ?
		  AND blob_id IN (SELECT id FROM blobs WHERE state = ?)
		  AND NOT EXISTS (SELECT 1 FROM blob_leases WHERE blob_id = ? AND expires_at > ?)
	`, docID, string(models.DocumentStateDeleted), docID, formatTime(now))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListSweepCandidates returns tombstoned documents that still own chunks and
// pending documents created before pendingBefore.
func (s *Store) ListSweepCandidates(ctx context.Context, pendingBefore time.Time, limit int) ([]models.Document, error) {
	query := `
		SELECT ` + documentColumns + ` FROM blobs b
		WHERE (b.state = ? AND EXISTS (SELECT 1 FROM blob_chunks c WHERE c.blob_id = b.id))
		   OR (b.state = ? AND b.created_at < ?)
		ORDER BY b.created_at ASC`
	args := []any{string(models.DocumentStateDeleted), string(models.DocumentStatePending), formatTime(pendingBefore)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docs = append(docs, *doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// DocumentStats counts live documents and their bytes.
func (s *Store) DocumentStats(ctx context.Context) (DocumentStats, error) {
	var stats DocumentStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM blobs WHERE state = ?
	`, string(models.DocumentStateLive)).Scan(&stats.Count, &stats.TotalBytes)
	return stats, err
}

func scanDocument(scanner interface {
	Scan(dest ...any) error
}) (*models.Document, error) {
	var doc models.Document
	var digest sql.NullString
	var state string
	var createdAt string
	var deletedAt sql.NullString
	if err := scanner.Scan(
		&doc.ID,
		&doc.Filename,
		&doc.ContentType,
		&doc.SizeBytes,
		&doc.ChunkSize,
		&doc.ChunkCount,
		&digest,
		&state,
		&createdAt,
		&deletedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	parsedState, err := models.ParseDocumentState(state)
	if err != nil {
		return nil, err
	}
	doc.State = parsedState
	doc.Digest = digest.String

	created, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	doc.CreatedAt = created

	if deletedAt.Valid && deletedAt.String != "" {
		deleted, err := parseTime(deletedAt.String)
		if err != nil {
			return nil, err
		}
		doc.DeletedAt = &deleted
	}
	return &doc, nil
}
