package store

import (
	"fmt"

	"github.com/google/uuid"
)

const idMaxAttempts = 20

// GenerateDocumentID returns a new random document identifier.
// It retries on collisions using the provided exists function, which must
// also see tombstoned rows so that deleted identifiers are never reissued.
func GenerateDocumentID(exists func(string) (bool, error)) (string, error) {
	for i := 0; i < idMaxAttempts; i++ {
		raw, err := uuid.NewRandom()
		if err != nil {
			return "", err
		}
		id := raw.String()
		if exists == nil {
			return id, nil
		}
		ok, err := exists(id)
		if err != nil {
			return "", err
		}
		if !ok {
			return id, nil
		}
	}

	return "", fmt.Errorf("unable to generate unique id")
}

// ValidDocumentID reports whether id has the canonical form produced by GenerateDocumentID.
func ValidDocumentID(id string) bool {
	if len(id) != 36 {
		return false
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return parsed.String() == id
}
