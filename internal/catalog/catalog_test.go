package catalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"docvault/internal/blobstore"
	"docvault/internal/store"
)

func newTestService(t *testing.T, policy Policy) (*Service, *blobstore.ChunkedStore) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	blobs := blobstore.NewChunkedStore(st, blobstore.Options{ChunkSize: 16})
	return New(blobs, policy, nil), blobs
}

func countDocuments(t *testing.T, svc *Service) int {
	t.Helper()
	n := 0
	for _, err := range svc.List(context.Background()) {
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		n++
	}
	return n
}

func TestValidateUpload(t *testing.T) {
	svc, _ := newTestService(t, Policy{})

	tests := []struct {
		name        string
		title       string
		filename    string
		contentType string
		size        int64
		wantName    string
		wantType    string
		wantReason  string
		wantTooBig  bool
	}{
		{name: "plain pdf", title: "cert", filename: "scan.pdf", contentType: "application/pdf", size: 17, wantName: "cert.pdf", wantType: "application/pdf"},
		{name: "upper case extension", title: "Holiday Photo", filename: "IMG_001.JPG", contentType: "image/jpeg", size: 10, wantName: "Holiday_Photo.jpg", wantType: "image/jpeg"},
		{name: "title already has extension", title: "report.PDF", filename: "x.pdf", size: 3, wantName: "report.pdf", wantType: "application/pdf"},
		{name: "traversal in title", title: "../../etc/passwd", filename: "a.png", size: 3, wantName: "etc_passwd.png", wantType: "image/png"},
		{name: "control bytes and leading dots", title: "..\x00.hid\x07den", filename: "a.jpeg", size: 3, wantName: "hidden.jpeg", wantType: "image/jpeg"},
		{name: "nothing usable left", title: "///", filename: "a.pdf", size: 3, wantName: "document.pdf", wantType: "application/pdf"},
		{name: "declared type with params", title: "doc", filename: "a.pdf", contentType: "application/pdf; charset=binary", size: 3, wantName: "doc.pdf", wantType: "application/pdf"},
		{name: "generic declared type", title: "doc", filename: "a.png", contentType: "application/octet-stream", size: 3, wantName: "doc.png", wantType: "image/png"},
		{name: "unknown size", title: "doc", filename: "a.pdf", size: -1, wantName: "doc.pdf", wantType: "application/pdf"},
		{name: "empty title", title: "  ", filename: "a.pdf", size: 3, wantReason: ReasonMissingField},
		{name: "no file", title: "doc", filename: "", size: 3, wantReason: ReasonMissingField},
		{name: "empty file", title: "doc", filename: "a.pdf", size: 0, wantReason: ReasonMissingField},
		{name: "disallowed extension", title: "doc", filename: "run.exe", size: 3, wantReason: ReasonDisallowedExtension},
		{name: "no extension", title: "doc", filename: "README", size: 3, wantReason: ReasonDisallowedExtension},
		{name: "double extension", title: "doc", filename: "a.pdf.exe", size: 3, wantReason: ReasonDisallowedExtension},
		{name: "declared too big", title: "doc", filename: "a.pdf", size: DefaultMaxUploadBytes + 1, wantTooBig: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			upload, err := svc.ValidateUpload(tc.title, tc.filename, tc.contentType, tc.size)
			switch {
			case tc.wantReason != "":
				var invalidErr *InvalidUploadError
				if !errors.As(err, &invalidErr) {
					t.Fatalf("expected InvalidUploadError, got %v", err)
				}
				if invalidErr.Reason != tc.wantReason {
					t.Fatalf("expected reason %q, got %q", tc.wantReason, invalidErr.Reason)
				}
				if !errors.Is(err, ErrInvalidUpload) {
					t.Fatal("expected error to match ErrInvalidUpload")
				}
			case tc.wantTooBig:
				if !errors.Is(err, blobstore.ErrPayloadTooLarge) {
					t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("validate: %v", err)
				}
				if upload.Filename != tc.wantName {
					t.Fatalf("expected filename %q, got %q", tc.wantName, upload.Filename)
				}
				if upload.ContentType != tc.wantType {
					t.Fatalf("expected content type %q, got %q", tc.wantType, upload.ContentType)
				}
			}
		})
	}
}

func TestValidateUploadCustomPolicy(t *testing.T) {
	svc, _ := newTestService(t, Policy{AllowedExtensions: []string{" .TXT", "txt", ""}, MaxUploadBytes: 10})

	if got := svc.AllowedExtensions(); len(got) != 1 || got[0] != "txt" {
		t.Fatalf("unexpected allowed extensions: %v", got)
	}
	if svc.MaxUploadBytes() != 10 {
		t.Fatalf("expected max 10, got %d", svc.MaxUploadBytes())
	}
	if _, err := svc.ValidateUpload("notes", "a.pdf", "", 3); !errors.Is(err, ErrInvalidUpload) {
		t.Fatalf("expected pdf to be rejected, got %v", err)
	}
	upload, err := svc.ValidateUpload("notes", "a.txt", "", 3)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.HasPrefix(upload.ContentType, "text/plain") {
		t.Fatalf("expected text/plain, got %q", upload.ContentType)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	svc, blobs := newTestService(t, Policy{})
	ctx := context.Background()
	content := []byte("%PDF-1.4\n1 0 obj\n")

	upload, err := svc.ValidateUpload("cert", "certificate.pdf", "application/pdf", int64(len(content)))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	id, err := svc.Store(ctx, upload, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	found := false
	for doc, err := range svc.List(ctx) {
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if doc.ID == id {
			found = true
			if doc.Filename != "cert.pdf" || doc.SizeBytes != 17 {
				t.Fatalf("unexpected listing: %+v", doc)
			}
		}
	}
	if !found {
		t.Fatal("expected stored document in listing")
	}

	doc, rc, err := blobs.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Fatalf("content mismatch: %q", data)
	}
	if !strings.HasSuffix(doc.Filename, ".pdf") {
		t.Fatalf("expected .pdf filename, got %q", doc.Filename)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 1 || stats.TotalBytes != 17 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRejectedUploadsStoreNothing(t *testing.T) {
	svc, _ := newTestService(t, Policy{MaxUploadBytes: 32})
	ctx := context.Background()

	if _, err := svc.ValidateUpload("tool", "tool.exe", "", 3); !errors.Is(err, ErrInvalidUpload) {
		t.Fatalf("expected invalid upload, got %v", err)
	}
	if n := countDocuments(t, svc); n != 0 {
		t.Fatalf("expected empty listing, got %d", n)
	}

	// Declared size can lie; the streaming limit still applies.
	upload, err := svc.ValidateUpload("big", "big.pdf", "", -1)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := svc.Store(ctx, upload, bytes.NewReader(make([]byte, 33))); !errors.Is(err, blobstore.ErrPayloadTooLarge) {
		t.Fatalf("expected payload too large, got %v", err)
	}
	if n := countDocuments(t, svc); n != 0 {
		t.Fatalf("expected no partial document, got %d", n)
	}
}

func TestStoreRejectsEmptyContentOfUnknownSize(t *testing.T) {
	svc, _ := newTestService(t, Policy{})
	ctx := context.Background()

	upload, err := svc.ValidateUpload("blank", "blank.pdf", "application/pdf", -1)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	_, err = svc.Store(ctx, upload, strings.NewReader(""))
	var invalidErr *InvalidUploadError
	if !errors.As(err, &invalidErr) || invalidErr.Reason != ReasonMissingField {
		t.Fatalf("expected missing field rejection, got %v", err)
	}
	if n := countDocuments(t, svc); n != 0 {
		t.Fatalf("expected nothing stored, got %d", n)
	}

	id, err := svc.Store(ctx, upload, strings.NewReader("x"))
	if err != nil {
		t.Fatalf("store one byte: %v", err)
	}
	if id == "" {
		t.Fatal("expected an identifier for non-empty content")
	}
}
