package contentsync

import (
	"fmt"
	"strings"
	"unicode"
)

// ResolveKey turns a user-supplied name into the canonical storage key used
// across the blob store, the metadata store and the search index.
//
// Resolution is pure and deterministic: the same raw name always yields the
// same key. Path separators and filesystem-unsafe characters are dropped,
// runs of whitespace collapse to a single underscore, and the result is
// constrained to [A-Za-z0-9._-]. Leading and trailing dots, dashes and
// underscores are trimmed so the key can never name a hidden file or escape
// its namespace. A name that reduces to nothing fails with ErrInvalidName.
func ResolveKey(rawName string) (string, error) {
	var b strings.Builder
	b.Grow(len(rawName))

	lastUnderscore := false
	for _, r := range rawName {
		switch {
		case unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			// Path separators and anything else unsafe are dropped.
		}
	}

	key := strings.Trim(b.String(), "._-")
	if key == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, rawName)
	}
	return key, nil
}

// indexEntryID derives the search index entry identity from a storage key.
// The identity is a pure function of the key and is never stored, so
// re-indexing the same document always replaces the same entry.
func indexEntryID(storageKey string) string {
	return "doc::" + storageKey
}
