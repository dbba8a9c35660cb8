package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestReadLeaseOnlyForLiveDocuments(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedPending(t, st, "pending", now)
	seedLive(t, st, "live", now, "abcd")

	for _, id := range []string{"pending", "missing"} {
		leaseID, ok, err := st.AcquireReadLease(ctx, id, now.Add(time.Minute), now)
		if err != nil {
			t.Fatalf("acquire %s: %v", id, err)
		}
		if ok || leaseID != "" {
			t.Fatalf("expected no lease on %s, got %q", id, leaseID)
		}
	}

	leaseID, ok, err := st.AcquireReadLease(ctx, "live", now.Add(time.Minute), now)
	if err != nil || !ok || leaseID == "" {
		t.Fatalf("expected lease on live document, got %q ok=%v err=%v", leaseID, ok, err)
	}

	if _, err := st.MarkDocumentDeleted(ctx, "live", now); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}
	if _, ok, err := st.AcquireReadLease(ctx, "live", now.Add(time.Minute), now); err != nil || ok {
		t.Fatalf("expected tombstone to refuse leases, ok=%v err=%v", ok, err)
	}
}

func TestPurgeChunksWaitsForLeases(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedLive(t, st, "d1", now, "abcdefgh")
	first, _, err := st.AcquireReadLease(ctx, "d1", now.Add(time.Minute), now)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	second, _, err := st.AcquireReadLease(ctx, "d1", now.Add(time.Minute), now)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := st.MarkDocumentDeleted(ctx, "d1", now); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}

	for _, leaseID := range []string{first, second} {
		purged, err := st.PurgeChunks(ctx, "d1", now)
		if err != nil {
			t.Fatalf("purge: %v", err)
		}
		if purged != 0 {
			t.Fatalf("expected leased chunks to survive, purged %d", purged)
		}
		if err := st.ReleaseReadLease(ctx, leaseID); err != nil {
			t.Fatalf("release: %v", err)
		}
	}

	purged, err := st.PurgeChunks(ctx, "d1", now)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 2 {
		t.Fatalf("expected 2 purged chunks after release, got %d", purged)
	}
	if err := st.ReleaseReadLease(ctx, first); err != nil {
		t.Fatalf("release twice: %v", err)
	}
}

func TestExpiredLeaseDoesNotPinChunks(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedLive(t, st, "d1", now, "abcd")
	if _, _, err := st.AcquireReadLease(ctx, "d1", now.Add(time.Minute), now); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := st.MarkDocumentDeleted(ctx, "d1", now); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}

	later := now.Add(2 * time.Minute)
	purged, err := st.PurgeChunks(ctx, "d1", later)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected expired lease to be ignored, purged %d", purged)
	}

	expired, err := st.DeleteExpiredLeases(ctx, now)
	if err != nil {
		t.Fatalf("delete expired at now: %v", err)
	}
	if expired != 0 {
		t.Fatalf("expected unexpired lease to stay, removed %d", expired)
	}
	expired, err = st.DeleteExpiredLeases(ctx, later)
	if err != nil {
		t.Fatalf("delete expired later: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired lease, removed %d", expired)
	}
}

func TestLeaseVisibleToSecondConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	server, err := Open(path)
	if err != nil {
		t.Fatalf("open server store: %v", err)
	}
	t.Cleanup(func() { server.Close() })
	cli, err := Open(path)
	if err != nil {
		t.Fatalf("open cli store: %v", err)
	}
	t.Cleanup(func() { cli.Close() })

	ctx := context.Background()
	now := time.Now().UTC()
	seedLive(t, server, "d1", now, "abcdefgh")
	leaseID, ok, err := server.AcquireReadLease(ctx, "d1", now.Add(time.Minute), now)
	if err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}

	if ok, err := cli.MarkDocumentDeleted(ctx, "d1", now); err != nil || !ok {
		t.Fatalf("mark deleted from second store: ok=%v err=%v", ok, err)
	}
	purged, err := cli.PurgeChunks(ctx, "d1", now)
	if err != nil {
		t.Fatalf("purge from second store: %v", err)
	}
	if purged != 0 {
		t.Fatalf("expected lease from first store to pin chunks, purged %d", purged)
	}

	if err := server.ReleaseReadLease(ctx, leaseID); err != nil {
		t.Fatalf("release: %v", err)
	}
	purged, err = cli.PurgeChunks(ctx, "d1", now)
	if err != nil {
		t.Fatalf("purge after release: %v", err)
	}
	if purged != 2 {
		t.Fatalf("expected 2 purged chunks, got %d", purged)
	}
}
