// Package objectpath maps (subject, filename) pairs to storage keys and back.
// The codec is pure and stateless: keys encode the subject as a folder prefix
// and guarantee uniqueness with a per-upload UUID prefix on the filename.
package objectpath

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"lectern/internal/domain"
	"lectern/internal/domain/models"

	"github.com/google/uuid"
)

// SanitizeSubject reduces a user-supplied subject to a safe folder name:
// only letters, digits, spaces, hyphens, and underscores survive, and runs
// of whitespace collapse to a single space. The result is trimmed.
// Sanitization is idempotent.
func SanitizeSubject(subject string) string {
	var b strings.Builder
	for _, r := range subject {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Encode computes the storage key for a new upload:
// "<sanitizedSubject>/<uuid>_<filename>". The UUID prefix is freshly
// generated per call, so repeated uploads of identically-named files in the
// same subject always map to distinct keys. Any directory components in the
// client-supplied filename are discarded.
func Encode(subject, filename string) (string, error) {
	safe := SanitizeSubject(subject)
	if safe == "" {
		return "", &domain.ValidationError{Message: "invalid subject"}
	}

	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "", &domain.ValidationError{Message: "invalid filename"}
	}

	return fmt.Sprintf("%s/%s_%s", safe, uuid.New().String(), base), nil
}

// Decode recovers (subject, displayName) from a storage key. Keys without a
// folder prefix belong to the literal "Uncategorized" subject. The display
// name is the key's base name with everything up to and including the first
// "_" stripped; a base name without "_" is returned unchanged.
func Decode(key string) (subject, displayName string) {
	if key == "" {
		return models.UncategorizedSubject, ""
	}

	rest := key
	if i := strings.Index(key, "/"); i >= 0 {
		subject = key[:i]
		rest = key[i+1:]
	} else {
		subject = models.UncategorizedSubject
	}

	return subject, DisplayName(rest)
}

// DisplayName strips any folder components and the uniqueness prefix from a
// key remainder, yielding the human-facing filename.
func DisplayName(key string) string {
	base := path.Base(key)
	if base == "." || base == "/" {
		return ""
	}
	if i := strings.Index(base, "_"); i >= 0 {
		return base[i+1:]
	}
	return base
}
