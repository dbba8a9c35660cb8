package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"mime"
	"path/filepath"
	"slices"
	"strings"

	"docvault/internal/blobstore"
	"docvault/internal/models"
)

const (
	// DefaultMaxUploadBytes caps uploads at 5 MiB.
	DefaultMaxUploadBytes int64 = 5 << 20

	fallbackContentType = "application/octet-stream"
)

// DefaultAllowedExtensions are the document types accepted out of the box.
var DefaultAllowedExtensions = []string{"pdf", "png", "jpg", "jpeg"}

// Storage is the blob store surface the catalog needs.
type Storage interface {
	blobstore.BlobStore
	Stats(ctx context.Context) (blobstore.Stats, error)
}

// Policy holds the upload rules.
type Policy struct {
	AllowedExtensions []string
	MaxUploadBytes    int64
}

// Upload is an accepted upload request, ready to be stored.
type Upload struct {
	Filename    string
	ContentType string
	Extension   string
}

// Service enforces upload policy in front of a blob store.
type Service struct {
	blobs    Storage
	maxBytes int64
	allowed  []string
	logger   *slog.Logger
}

// New creates a catalog service. Empty policy fields select the defaults.
func New(blobs Storage, policy Policy, logger *slog.Logger) *Service {
	allowed := NormalizeExtensions(policy.AllowedExtensions)
	if len(allowed) == 0 {
		allowed = slices.Clone(DefaultAllowedExtensions)
	}
	maxBytes := policy.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		blobs:    blobs,
		maxBytes: maxBytes,
		allowed:  allowed,
		logger:   logger.With("component", "catalog"),
	}
}

// NormalizeExtensions lower-cases, strips dots and de-duplicates extensions.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" || slices.Contains(out, ext) {
			continue
		}
		out = append(out, ext)
	}
	return out
}

// AllowedExtensions returns the accepted extensions without dots.
func (s *Service) AllowedExtensions() []string {
	return slices.Clone(s.allowed)
}

// MaxUploadBytes returns the configured size limit.
func (s *Service) MaxUploadBytes() int64 {
	return s.maxBytes
}

// ValidateUpload checks an upload request and derives the stored filename.
// A negative declaredSize means the size is unknown; Store enforces the
// limit on the actual bytes either way.
func (s *Service) ValidateUpload(title, providedFilename, declaredContentType string, declaredSize int64) (Upload, error) {
	title = strings.TrimSpace(title)
	providedFilename = strings.TrimSpace(providedFilename)
	if title == "" || providedFilename == "" || declaredSize == 0 {
		return Upload{}, invalid(ReasonMissingField)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(providedFilename), "."))
	if ext == "" || !slices.Contains(s.allowed, ext) {
		return Upload{}, invalid(ReasonDisallowedExtension)
	}

	upload := Upload{
		Filename:    sanitizeFilename(title, ext),
		ContentType: contentTypeFor(declaredContentType, ext),
		Extension:   ext,
	}

	if declaredSize > s.maxBytes {
		return Upload{}, fmt.Errorf("declared size %d exceeds %d bytes: %w", declaredSize, s.maxBytes, blobstore.ErrPayloadTooLarge)
	}
	return upload, nil
}

func contentTypeFor(declared, ext string) string {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != fallbackContentType {
		return mediaType
	}
	if byExt := mime.TypeByExtension("." + ext); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	return fallbackContentType
}

// Store writes the content of an accepted upload and returns its identifier.
// Empty content is rejected whatever size was declared.
func (s *Service) Store(ctx context.Context, upload Upload, r io.Reader) (string, error) {
	id, err := s.blobs.Put(ctx, upload.Filename, upload.ContentType, s.maxBytes, &nonEmptyReader{r: r})
	if errors.Is(err, errEmptyContent) {
		return "", invalid(ReasonMissingField)
	}
	if err != nil {
		return "", err
	}
	s.logger.Info("document uploaded", "id", id, "filename", upload.Filename)
	return id, nil
}

// List yields the live documents.
func (s *Service) List(ctx context.Context) iter.Seq2[models.Document, error] {
	return s.blobs.List(ctx)
}

// Stats counts live documents and their bytes.
func (s *Service) Stats(ctx context.Context) (blobstore.Stats, error) {
	return s.blobs.Stats(ctx)
}

var errEmptyContent = errors.New("upload has no content")

// nonEmptyReader fails the stream instead of reporting EOF when nothing was
// read, so the blob store discards the staged document.
type nonEmptyReader struct {
	r    io.Reader
	seen bool
}

func (n *nonEmptyReader) Read(p []byte) (int, error) {
	read, err := n.r.Read(p)
	if read > 0 {
		n.seen = true
	}
	if errors.Is(err, io.EOF) && !n.seen {
		return read, errEmptyContent
	}
	return read, err
}
