package main

import (
	"context"
	"errors"
	"net"

	"docvault/internal/blobstore"
	"docvault/internal/catalog"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	switch {
	case errors.Is(err, errPasswordHashRequired):
		lines = append(lines,
			"hint: create a hash with: docvault passwd-hash --password-stdin",
			"hint: then store it with: docvault config set --global auth.password_hash '<hash>'",
			"hint: or pass --no-auth to serve without the password gate.",
		)
	case errors.Is(err, blobstore.ErrNotFound):
		lines = append(lines, "hint: list stored documents with: docvault ls")
	case errors.Is(err, blobstore.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		lines = append(lines, "hint: storage timed out; another process may hold a write lock, or increase DOCVAULT_OP_TIMEOUT.")
	case errors.Is(err, blobstore.ErrStoreUnavailable):
		lines = append(lines, "hint: verify DOCVAULT_DB points to a readable docvault database.")
	case errors.Is(err, blobstore.ErrSourceRead):
		lines = append(lines, "hint: the input could not be read to the end; check the file or pipe and retry.")
	case errors.Is(err, blobstore.ErrCorrupt):
		lines = append(lines, "hint: stored content failed verification; delete the document and upload it again.")
	case errors.Is(err, blobstore.ErrPayloadTooLarge):
		lines = append(lines, "hint: raise storage.max_upload_bytes or DOCVAULT_MAX_UPLOAD_BYTES to accept larger files.")
	case errors.Is(err, catalog.ErrInvalidUpload):
		lines = append(lines, "hint: accepted extensions come from storage.allowed_extensions or DOCVAULT_ALLOWED_EXTENSIONS.")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines, "hint: check that the listen address is free, or change it with DOCVAULT_LISTEN.")
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
