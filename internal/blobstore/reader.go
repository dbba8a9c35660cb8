package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/opencontainers/go-digest"

	"docvault/internal/models"
	"docvault/internal/store"
)

var errReaderClosed = errors.New("read on closed document reader")

// chunkReader streams a document one chunk at a time and checks the byte
// count and digest once the last chunk has been consumed.
type chunkReader struct {
	ctx      context.Context
	docs     store.DocumentStore
	doc      models.Document
	next     int
	buf      []byte
	read     int64
	digester digest.Digester
	err      error

	closeOnce sync.Once
	release   func()
	closed    bool
}

func newChunkReader(ctx context.Context, docs store.DocumentStore, doc models.Document, release func()) *chunkReader {
	return &chunkReader{
		ctx:      ctx,
		docs:     docs,
		doc:      doc,
		digester: digest.Canonical.Digester(),
		release:  release,
	}
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, errReaderClosed
	}
	if r.err != nil {
		return 0, r.err
	}
	if len(p) == 0 {
		return 0, nil
	}

	for len(r.buf) == 0 {
		if r.next >= r.doc.ChunkCount {
			r.err = r.verify()
			return 0, r.err
		}
		data, err := r.docs.ReadChunk(r.ctx, r.doc.ID, r.next)
		if err != nil {
			r.err = storageError(r.ctx, fmt.Sprintf("read chunk %d", r.next), err)
			return 0, r.err
		}
		if data == nil {
			r.err = fmt.Errorf("document %s chunk %d missing: %w", r.doc.ID, r.next, ErrCorrupt)
			return 0, r.err
		}
		_, _ = r.digester.Hash().Write(data)
		r.read += int64(len(data))
		r.buf = data
		r.next++
	}

	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *chunkReader) verify() error {
	if r.read != r.doc.SizeBytes {
		return fmt.Errorf("document %s: read %d bytes, expected %d: %w", r.doc.ID, r.read, r.doc.SizeBytes, ErrCorrupt)
	}
	if r.doc.Digest == "" {
		return io.EOF
	}
	expected, err := digest.Parse(r.doc.Digest)
	if err != nil {
		return fmt.Errorf("document %s: %v: %w", r.doc.ID, err, ErrCorrupt)
	}
	if got := r.digester.Digest(); got != expected {
		return fmt.Errorf("document %s: digest %s, expected %s: %w", r.doc.ID, got, expected, ErrCorrupt)
	}
	return io.EOF
}

// Close releases the read lease. It is safe to call more than once.
func (r *chunkReader) Close() error {
	r.closeOnce.Do(func() {
		r.closed = true
		r.buf = nil
		if r.release != nil {
			r.release()
		}
	})
	return nil
}
