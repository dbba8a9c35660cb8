package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNotFound reports that no live document has the identifier.
	ErrNotFound = errors.New("document not found")
	// ErrPayloadTooLarge reports that content exceeded the size limit.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrStoreUnavailable reports that the backing database could not serve the call.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrTimeout reports that the caller's deadline expired mid-operation.
	ErrTimeout = errors.New("storage operation timed out")
	// ErrCorrupt reports stored content that does not match its metadata.
	ErrCorrupt = errors.New("stored content is corrupt")
	// ErrSourceRead reports that the content being stored could not be read.
	ErrSourceRead = errors.New("content source failed")
)

// storageError classifies a failure from the metadata store. A deadline on
// ctx wins over whatever the driver reported, since SQLite surfaces an
// interrupted query as a generic error.
func storageError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%s: %w", op, context.Canceled)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// sourceError classifies a failure reading the caller's content. A read
// deadline on the source counts as a timeout like an expired ctx.
func sourceError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("read content: %w", ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("read content: %w", context.Canceled)
	}
	return fmt.Errorf("read content: %w: %w", ErrSourceRead, err)
}
