package blobstore

import (
	"context"
	"io"
	"iter"

	"docvault/internal/models"
)

// BlobStore is the byte-storage abstraction used by the catalog.
type BlobStore interface {
	// Put streams r into storage and returns the new identifier. Nothing is
	// visible to Get or List until every byte has been stored.
	Put(ctx context.Context, filename, contentType string, sizeLimit int64, r io.Reader) (string, error)
	// Get returns metadata and a reader over the content. Callers must Close the reader.
	Get(ctx context.Context, id string) (models.Document, io.ReadCloser, error)
	// List yields metadata of live documents.
	List(ctx context.Context) iter.Seq2[models.Document, error]
	// Delete removes a live document.
	Delete(ctx context.Context, id string) error
}

// Stats summarizes live documents.
type Stats struct {
	Count      int   `json:"count" yaml:"count"`
	TotalBytes int64 `json:"total_bytes" yaml:"total_bytes"`
}

// SweepResult reports what a Sweep reclaimed.
type SweepResult struct {
	PurgedDocuments  int   `json:"purged_documents" yaml:"purged_documents"`
	PurgedChunks     int64 `json:"purged_chunks" yaml:"purged_chunks"`
	DiscardedPending int   `json:"discarded_pending" yaml:"discarded_pending"`
	SkippedLeased    int   `json:"skipped_leased" yaml:"skipped_leased"`
	ExpiredLeases    int64 `json:"expired_leases" yaml:"expired_leases"`
}

var _ BlobStore = (*ChunkedStore)(nil)
