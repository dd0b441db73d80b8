package product

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxKeyLen = 190

// ValidKey derives a path-safe element key from s. Accents are folded,
// characters outside [A-Za-z0-9._~-] become '-', repeated dashes collapse and
// the result is trimmed to at most 190 bytes.
func ValidKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	dash := false
	for _, r := range folded {
		if isKeyRune(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash {
			b.WriteByte('-')
			dash = true
		}
	}

	key := strings.Trim(b.String(), "-. ")
	if len(key) > maxKeyLen {
		key = strings.TrimRight(key[:maxKeyLen], "-.")
	}
	if key == "" {
		return "-"
	}
	return key
}

func isKeyRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '~', r == '-':
		return true
	}
	return false
}
