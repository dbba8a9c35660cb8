package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"docvault/internal/blobstore"
)

type documentView struct {
	ID          string
	Filename    string
	ContentType string
	Size        string
	Created     string
	CreatedAt   string
}

type indexPage struct {
	Notice      *Notice
	Documents   []documentView
	Count       int
	TotalSize   string
	Accept      string
	MaxUpload   string
	AuthEnabled bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storageContext(r)
	defer cancel()

	page := indexPage{
		Notice:      s.popNotice(w, r),
		Documents:   []documentView{},
		Accept:      acceptAttr(s.catalog.AllowedExtensions()),
		MaxUpload:   humanize.IBytes(uint64(s.catalog.MaxUploadBytes())),
		AuthEnabled: s.sessions != nil,
	}

	now := time.Now()
	for doc, err := range s.catalog.List(ctx) {
		if err != nil {
			s.renderError(w, r, "list documents", err)
			return
		}
		page.Documents = append(page.Documents, documentView{
			ID:          doc.ID,
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
			Size:        humanize.IBytes(uint64(doc.SizeBytes)),
			Created:     humanize.RelTime(doc.CreatedAt, now, "ago", "from now"),
			CreatedAt:   doc.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	stats, err := s.catalog.Stats(ctx)
	if err != nil {
		s.renderError(w, r, "document stats", err)
		return
	}
	page.Count = stats.Count
	page.TotalSize = humanize.IBytes(uint64(stats.TotalBytes))

	s.render(w, r, http.StatusOK, "index.html", page)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storageContext(r)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		// Body reads from a client that stops sending must end with ctx.
		if err := http.NewResponseController(w).SetReadDeadline(deadline); err != nil {
			s.log().Debug("upload read deadline not supported", "error", err)
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.catalog.MaxUploadBytes()+multipartOverheadBytes)
	if err := r.ParseMultipartForm(s.multipartMaxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.redirectWithNotice(w, r, "/", s.noticeForError(r, "upload", blobstore.ErrPayloadTooLarge))
		case isReadTimeout(ctx, err):
			s.redirectWithNotice(w, r, "/", s.noticeForError(r, "upload", fmt.Errorf("read upload: %w: %w", blobstore.ErrTimeout, err)))
		default:
			s.redirectWithNotice(w, r, "/", Notice{Kind: noticeDanger, Message: "Title and file are required."})
		}
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	title := r.FormValue("title")
	var filename, declaredType string
	declaredSize := int64(0)
	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		filename = header.Filename
		declaredType = header.Header.Get("Content-Type")
		declaredSize = header.Size
	}

	upload, err := s.catalog.ValidateUpload(title, filename, declaredType, declaredSize)
	if err != nil {
		s.redirectWithNotice(w, r, "/", s.noticeForError(r, "validate upload", err))
		return
	}

	if _, err := s.catalog.Store(ctx, upload, file); err != nil {
		s.redirectWithNotice(w, r, "/", s.noticeForError(r, "store upload", err))
		return
	}
	s.redirectWithNotice(w, r, "/", Notice{Kind: noticeSuccess, Message: "Document uploaded successfully!"})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storageContext(r)
	defer cancel()

	doc, content, err := s.blobs.Get(ctx, r.PathValue("id"))
	if err != nil {
		s.redirectWithNotice(w, r, "/", s.noticeForError(r, "download", err))
		return
	}
	defer content.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := w.Header()
	header.Set("Content-Type", contentType)
	header.Set("Content-Length", strconv.FormatInt(doc.SizeBytes, 10))
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("Cache-Control", "private, no-store")
	if doc.Digest != "" {
		header.Set("ETag", strconv.Quote(doc.Digest))
	}

	written, err := io.Copy(w, content)
	if err == nil {
		return
	}
	if written == 0 {
		for _, key := range []string{"Content-Type", "Content-Length", "Content-Disposition", "ETag", "Cache-Control"} {
			header.Del(key)
		}
		s.redirectWithNotice(w, r, "/", s.noticeForError(r, "download", err))
		return
	}
	// Headers are gone; abort the connection so the client sees a failed
	// transfer instead of a short file.
	s.log().Error("download aborted", "id", doc.ID, "written", written, "error", err)
	panic(http.ErrAbortHandler)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storageContext(r)
	defer cancel()

	if err := s.blobs.Delete(ctx, r.PathValue("id")); err != nil {
		s.redirectWithNotice(w, r, "/", s.noticeForError(r, "delete", err))
		return
	}
	s.redirectWithNotice(w, r, "/", Notice{Kind: noticeSuccess, Message: "Document deleted."})
}

func acceptAttr(exts []string) string {
	parts := make([]string, len(exts))
	for i, ext := range exts {
		parts[i] = "." + ext
	}
	return strings.Join(parts, ",")
}

// isReadTimeout reports whether a body read failed because the upload
// deadline passed.
func isReadTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
