package catalog

import (
	"strings"
	"unicode"
)

const (
	fallbackBaseName = "document"
	maxBaseNameLen   = 120
)

// sanitizeFilename turns a user supplied title into a storage-safe name that
// ends in ext. Separators become underscores, anything outside
// [A-Za-z0-9._-] is dropped and leading dots are removed so the name cannot
// climb directories or hide itself.
func sanitizeFilename(title, ext string) string {
	title = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return ' '
		case r == 0 || unicode.IsControl(r):
			return -1
		}
		return r
	}, title)
	title = strings.Join(strings.Fields(title), "_")

	var b strings.Builder
	for _, r := range title {
		if r < unicode.MaxASCII && (r == '.' || r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	base := strings.Trim(b.String(), "._")

	suffix := "." + ext
	if len(base) > len(suffix) && strings.EqualFold(base[len(base)-len(suffix):], suffix) {
		base = strings.TrimRight(base[:len(base)-len(suffix)], "._")
	}
	if len(base) > maxBaseNameLen {
		base = strings.TrimRight(base[:maxBaseNameLen], "._")
	}
	if base == "" {
		base = fallbackBaseName
	}
	return base + suffix
}
