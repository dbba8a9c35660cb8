package blobstore

import (
	"context"
	"time"
)

// DefaultLeaseTTL bounds a read lease when the reader's ctx has no deadline.
const DefaultLeaseTTL = time.Hour

// leaseExpiry ties a read lease to the reader's deadline. A reader cannot
// make progress past its deadline, so the lease need not outlive it.
func (s *ChunkedStore) leaseExpiry(ctx context.Context) time.Time {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline.UTC()
	}
	return s.now().UTC().Add(s.leaseTTL)
}

func (s *ChunkedStore) acquireLease(ctx context.Context, id string) (string, bool, error) {
	return s.docs.AcquireReadLease(ctx, id, s.leaseExpiry(ctx), s.now().UTC())
}

// releaseLease drops the lease and purges the chunks if the document was
// deleted while it was held and no other reader remains.
func (s *ChunkedStore) releaseLease(ctx context.Context, id, leaseID string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := s.docs.ReleaseReadLease(releaseCtx, leaseID); err != nil {
		s.logger.Warn("release read lease failed", "id", id, "lease", leaseID, "error", err)
		return
	}
	s.purge(releaseCtx, id)
}

// purge failures and leased documents are left for Sweep.
func (s *ChunkedStore) purge(ctx context.Context, id string) {
	purgeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	n, err := s.docs.PurgeChunks(purgeCtx, id, s.now().UTC())
	if err != nil {
		s.logger.Warn("purge chunks failed", "id", id, "error", err)
		return
	}
	if n > 0 {
		s.logger.Debug("chunks purged", "id", id, "chunks", n)
	}
}
