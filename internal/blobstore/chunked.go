package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"

	"docvault/internal/models"
	"docvault/internal/store"
)

const (
	// DefaultChunkSize matches the GridFS default of 255 KiB.
	DefaultChunkSize = 255 * 1024
	defaultPageSize  = 100

	cleanupTimeout = 10 * time.Second
)

// Options tunes a ChunkedStore. Zero values select defaults.
type Options struct {
	ChunkSize int
	PageSize  int
	LeaseTTL  time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

// ChunkedStore keeps document content as ordered chunks next to a metadata
// row. A row is staged as pending while chunks are written and becomes
// visible only when it is published.
type ChunkedStore struct {
	docs      store.DocumentStore
	chunkSize int
	pageSize  int
	leaseTTL  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewChunkedStore creates a chunked blob store on top of docs.
func NewChunkedStore(docs store.DocumentStore, opts Options) *ChunkedStore {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	leaseTTL := opts.LeaseTTL
	if leaseTTL <= 0 {
		leaseTTL = DefaultLeaseTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &ChunkedStore{
		docs:      docs,
		chunkSize: chunkSize,
		pageSize:  pageSize,
		leaseTTL:  leaseTTL,
		logger:    logger.With("component", "blobstore"),
		now:       now,
	}
}

// Put streams r into chunks. A non-positive sizeLimit disables the limit.
func (s *ChunkedStore) Put(ctx context.Context, filename, contentType string, sizeLimit int64, r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("reader is required")
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", fmt.Errorf("filename is required")
	}
	if err := ctx.Err(); err != nil {
		return "", storageError(ctx, "put", err)
	}

	id, err := store.GenerateDocumentID(func(candidate string) (bool, error) {
		return s.docs.DocumentIDExists(ctx, candidate)
	})
	if err != nil {
		return "", storageError(ctx, "allocate id", err)
	}

	doc := &models.Document{
		ID:          id,
		Filename:    filename,
		ContentType: contentType,
		ChunkSize:   s.chunkSize,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.docs.CreatePendingDocument(ctx, doc); err != nil {
		return "", storageError(ctx, "stage document", err)
	}

	size, chunks, dgst, err := s.writeChunks(ctx, id, sizeLimit, r)
	if err == nil {
		if pubErr := s.docs.PublishDocument(ctx, id, size, chunks, dgst.String()); pubErr != nil {
			err = storageError(ctx, "publish document", pubErr)
		}
	}
	if err != nil {
		s.discard(ctx, id)
		return "", err
	}

	s.logger.Debug("document stored", "id", id, "filename", filename, "size", size, "chunks", chunks)
	return id, nil
}

func (s *ChunkedStore) writeChunks(ctx context.Context, id string, sizeLimit int64, r io.Reader) (int64, int, digest.Digest, error) {
	buf := make([]byte, s.chunkSize)
	digester := digest.Canonical.Digester()
	var size int64
	seq := 0
	src := newContextReader(ctx, r)

	for {
		if err := ctx.Err(); err != nil {
			return 0, 0, "", storageError(ctx, "write chunks", err)
		}
		n, readErr := io.ReadFull(src, buf)
		if n > 0 {
			size += int64(n)
			if sizeLimit > 0 && size > sizeLimit {
				return 0, 0, "", fmt.Errorf("content exceeds %d bytes: %w", sizeLimit, ErrPayloadTooLarge)
			}
			_, _ = digester.Hash().Write(buf[:n])
			if err := s.docs.PutChunk(ctx, id, seq, buf[:n]); err != nil {
				return 0, 0, "", storageError(ctx, fmt.Sprintf("write chunk %d", seq), err)
			}
			seq++
		}
		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}
		if readErr != nil {
			return 0, 0, "", sourceError(ctx, readErr)
		}
	}
	return size, seq, digester.Digest(), nil
}

// discard drops a staged document. It runs detached from ctx so that an
// expired deadline does not leave the staged chunks behind.
func (s *ChunkedStore) discard(ctx context.Context, id string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := s.docs.DiscardPendingDocument(cleanupCtx, id); err != nil {
		s.logger.Warn("discard staged document failed", "id", id, "error", err)
	}
}

// Get returns metadata and a lazy reader over the content of a live
// document. The reader is bound to ctx and must be closed.
func (s *ChunkedStore) Get(ctx context.Context, id string) (models.Document, io.ReadCloser, error) {
	if !store.ValidDocumentID(id) {
		return models.Document{}, nil, ErrNotFound
	}

	// The lease row is only written while the document is live, so a
	// concurrent Delete in any process either sees it and leaves the chunks
	// or wins and the lease is refused.
	leaseID, ok, err := s.acquireLease(ctx, id)
	if err != nil {
		return models.Document{}, nil, storageError(ctx, "acquire read lease", err)
	}
	if !ok {
		return models.Document{}, nil, ErrNotFound
	}
	release := func() { s.releaseLease(ctx, id, leaseID) }

	doc, err := s.docs.GetDocument(ctx, id)
	if err != nil {
		release()
		return models.Document{}, nil, storageError(ctx, "get document", err)
	}
	if doc == nil || !doc.Live() {
		release()
		return models.Document{}, nil, ErrNotFound
	}
	return *doc, newChunkReader(ctx, s.docs, *doc, release), nil
}

// List yields live documents page by page, newest first. No connection is
// held between pages.
func (s *ChunkedStore) List(ctx context.Context) iter.Seq2[models.Document, error] {
	return func(yield func(models.Document, error) bool) {
		var cursor *store.ListCursor
		for {
			page, err := s.docs.ListLiveDocuments(ctx, cursor, s.pageSize)
			if err != nil {
				yield(models.Document{}, storageError(ctx, "list documents", err))
				return
			}
			for _, doc := range page {
				if !yield(doc, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			last := page[len(page)-1]
			cursor = &store.ListCursor{CreatedAt: last.CreatedAt, ID: last.ID}
		}
	}
}

// Delete tombstones a live document and purges its chunks unless a reader
// holds a lease on them; the last reader to release then purges instead.
func (s *ChunkedStore) Delete(ctx context.Context, id string) error {
	if !store.ValidDocumentID(id) {
		return ErrNotFound
	}
	ok, err := s.docs.MarkDocumentDeleted(ctx, id, s.now().UTC())
	if err != nil {
		return storageError(ctx, "delete document", err)
	}
	if !ok {
		return ErrNotFound
	}
	s.purge(ctx, id)
	return nil
}

// Sweep reclaims chunks of deleted documents that no reader holds and drops
// pending documents staged more than olderThan ago.
func (s *ChunkedStore) Sweep(ctx context.Context, olderThan time.Duration) (SweepResult, error) {
	var result SweepResult
	now := s.now().UTC()
	expired, err := s.docs.DeleteExpiredLeases(ctx, now)
	if err != nil {
		return result, storageError(ctx, "delete expired leases", err)
	}
	result.ExpiredLeases = expired

	cutoff := now.Add(-olderThan)
	candidates, err := s.docs.ListSweepCandidates(ctx, cutoff, 0)
	if err != nil {
		return result, storageError(ctx, "list sweep candidates", err)
	}

	for _, doc := range candidates {
		switch doc.State {
		case models.DocumentStatePending:
			if err := s.docs.DiscardPendingDocument(ctx, doc.ID); err != nil {
				return result, storageError(ctx, "discard pending document", err)
			}
			result.DiscardedPending++
		case models.DocumentStateDeleted:
			n, err := s.docs.PurgeChunks(ctx, doc.ID, now)
			if err != nil {
				return result, storageError(ctx, "purge chunks", err)
			}
			if n == 0 {
				result.SkippedLeased++
				continue
			}
			result.PurgedDocuments++
			result.PurgedChunks += n
		}
	}

	if result.DiscardedPending > 0 || result.PurgedDocuments > 0 || result.ExpiredLeases > 0 {
		s.logger.Info("sweep reclaimed storage",
			"expired_leases", result.ExpiredLeases,
			"discarded_pending", result.DiscardedPending,
			"purged_documents", result.PurgedDocuments,
			"purged_chunks", result.PurgedChunks,
		)
	}
	return result, nil
}

// Stats counts live documents and their bytes.
func (s *ChunkedStore) Stats(ctx context.Context) (Stats, error) {
	stats, err := s.docs.DocumentStats(ctx)
	if err != nil {
		return Stats{}, storageError(ctx, "document stats", err)
	}
	return Stats{Count: stats.Count, TotalBytes: stats.TotalBytes}, nil
}

// Ping checks that the backing database answers.
func (s *ChunkedStore) Ping(ctx context.Context) error {
	return storageError(ctx, "ping", s.docs.Ping(ctx))
}
