package models

import (
	"fmt"
	"strings"
	"time"
)

// DocumentState describes where a stored document is in its lifecycle.
type DocumentState string

const (
	DocumentStatePending DocumentState = "pending"
	DocumentStateLive    DocumentState = "live"
	DocumentStateDeleted DocumentState = "deleted"
)

var validDocumentStates = map[DocumentState]struct{}{
	DocumentStatePending: {},
	DocumentStateLive:    {},
	DocumentStateDeleted: {},
}

// Document is the metadata record of one stored binary object.
type Document struct {
	ID          string        `json:"id" yaml:"id"`
	Filename    string        `json:"filename" yaml:"filename"`
	ContentType string        `json:"content_type" yaml:"content_type"`
	SizeBytes   int64         `json:"size_bytes" yaml:"size_bytes"`
	ChunkSize   int           `json:"chunk_size" yaml:"chunk_size"`
	ChunkCount  int           `json:"chunk_count" yaml:"chunk_count"`
	Digest      string        `json:"digest,omitempty" yaml:"digest,omitempty"`
	State       DocumentState `json:"-" yaml:"-"`
	CreatedAt   time.Time     `json:"created_at" yaml:"created_at"`
	DeletedAt   *time.Time    `json:"-" yaml:"-"`
}

// Live reports whether the document is published and readable.
func (d Document) Live() bool {
	return d.State == DocumentStateLive
}

func ParseDocumentState(raw string) (DocumentState, error) {
	value := DocumentState(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("document state is required")
	}
	if _, ok := validDocumentStates[value]; !ok {
		return "", fmt.Errorf("invalid document state: %s", value)
	}
	return value, nil
}
