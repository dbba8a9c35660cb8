package catalog

import "errors"

// ErrInvalidUpload matches every *InvalidUploadError.
var ErrInvalidUpload = errors.New("invalid upload")

const (
	ReasonMissingField        = "missing field"
	ReasonDisallowedExtension = "disallowed extension"
)

// InvalidUploadError rejects an upload before any bytes are stored.
type InvalidUploadError struct {
	Reason string
}

func (e *InvalidUploadError) Error() string {
	return "invalid upload: " + e.Reason
}

func (e *InvalidUploadError) Is(target error) bool {
	return target == ErrInvalidUpload
}

func invalid(reason string) error {
	return &InvalidUploadError{Reason: reason}
}
