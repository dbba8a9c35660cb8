package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"docvault/internal/format"
	"docvault/internal/models"
)

type outputOptions struct {
	JSON bool
	YAML bool
}

// formatter returns the structured formatter selected by flags, or nil for
// plain text.
func (o *outputOptions) formatter() format.Formatter {
	switch {
	case o == nil:
		return nil
	case o.JSON:
		return format.JSONFormatter{}
	case o.YAML:
		return format.YAMLFormatter{}
	default:
		return nil
	}
}

func writePlain(w io.Writer, layout string, args ...any) error {
	_, err := fmt.Fprintf(w, layout, args...)
	return err
}

func writeDocumentList(w io.Writer, docs []models.Document, now time.Time) error {
	for _, doc := range docs {
		if err := writePlain(w, "%s\n", formatDocumentLine(doc, now)); err != nil {
			return err
		}
	}
	return nil
}

func formatDocumentLine(doc models.Document, now time.Time) string {
	return fmt.Sprintf("%s  %9s  %-16s  %s",
		doc.ID,
		humanize.IBytes(uint64(doc.SizeBytes)),
		humanize.RelTime(doc.CreatedAt, now, "ago", "from now"),
		doc.Filename,
	)
}
