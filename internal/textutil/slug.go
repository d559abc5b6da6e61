package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugRunes = 48

// Slug converts a topic to a lowercase ASCII token safe for file paths.
// Diacritics are folded, everything outside [a-z0-9] becomes an underscore,
// runs collapse, and the result is capped at 48 runes. Empty input yields
// "prosit" so callers always get a usable path segment.
func Slug(value string) string {
	value = foldDiacritics(strings.TrimSpace(value))

	var b strings.Builder
	lastUnderscore := true
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
			lastUnderscore = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
			lastUnderscore = false
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "prosit"
	}
	if runeCount := len([]rune(out)); runeCount > maxSlugRunes {
		out = strings.Trim(string([]rune(out)[:maxSlugRunes]), "_")
	}
	return out
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
