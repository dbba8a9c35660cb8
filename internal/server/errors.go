package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"

	"docvault/internal/blobstore"
	"docvault/internal/catalog"
)

// noticeForError maps a core error to the message shown to the user. Detail
// beyond that message only goes to the log.
func (s *Server) noticeForError(r *http.Request, op string, err error) Notice {
	var invalid *catalog.InvalidUploadError
	var tooLarge *http.MaxBytesError
	var message string
	serverSide := false

	switch {
	case errors.As(err, &invalid):
		switch invalid.Reason {
		case catalog.ReasonDisallowedExtension:
			message = fmt.Sprintf("Only %s files are allowed.", extensionList(s.catalog.AllowedExtensions()))
		default:
			message = "Title and file are required."
		}
	case errors.Is(err, blobstore.ErrPayloadTooLarge), errors.As(err, &tooLarge):
		message = fmt.Sprintf("File is larger than the %s limit.", humanize.IBytes(uint64(s.catalog.MaxUploadBytes())))
	case errors.Is(err, blobstore.ErrNotFound):
		message = "File not found."
	case errors.Is(err, blobstore.ErrSourceRead):
		message = "Upload was interrupted, please try again."
	case errors.Is(err, blobstore.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		message = "Storage timed out, please try again."
		serverSide = true
	default:
		message = "Storage is unavailable, please try again."
		serverSide = true
	}

	fields := []any{"op", op, "error", err, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr}
	if serverSide {
		s.log().Error("request failed", fields...)
	} else {
		s.log().Debug("request rejected", fields...)
	}
	return Notice{Kind: noticeDanger, Message: message}
}

func extensionList(exts []string) string {
	upper := make([]string, len(exts))
	for i, ext := range exts {
		upper[i] = strings.ToUpper(ext)
	}
	switch len(upper) {
	case 0:
		return "allowed"
	case 1:
		return upper[0]
	default:
		return strings.Join(upper[:len(upper)-1], ", ") + " and " + upper[len(upper)-1]
	}
}
