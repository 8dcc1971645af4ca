// Package naming renders destination base names from category patterns and
// classifier-provided variable values.
package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"parafile/internal/catalog"
)

// UnknownValue substitutes for pattern tokens the classifier left unfilled.
// Losing one field should not block organization of the whole file.
const UnknownValue = "unknown"

// maxBaseNameRunes bounds the rendered base name, leaving headroom for the
// extension and a conflict suffix within common filesystem name limits.
const maxBaseNameRunes = 120

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// Render substitutes every {token} in the pattern with the matching value,
// falling back to UnknownValue for tokens the values map does not cover, and
// sanitizes the result. The returned base name excludes the extension; an
// empty result after sanitization falls back to the sanitized original stem.
func Render(pattern string, values map[string]string, originalStem string) (string, error) {
	tokens, err := catalog.PatternTokens(pattern)
	if err != nil {
		return "", err
	}

	rendered := pattern
	for _, token := range tokens {
		value := values[token]
		if token == catalog.OriginalNameVariable && value == "" {
			value = originalStem
		}
		if strings.TrimSpace(value) == "" {
			value = UnknownValue
		}
		rendered = strings.ReplaceAll(rendered, "{"+token+"}", value)
	}

	base := Sanitize(rendered)
	if base == "" {
		base = Sanitize(originalStem)
	}
	if base == "" {
		base = UnknownValue
	}
	return base, nil
}

// Sanitize makes a rendered name safe for use as a filesystem base name:
// unsafe punctuation is replaced or dropped, control characters removed,
// whitespace collapsed, the result NFC-normalized, trailing dots and spaces
// trimmed, and the length capped.
func Sanitize(name string) string {
	name = fileNameReplacer.Replace(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}

	name = strings.Join(strings.Fields(b.String()), " ")
	name = norm.NFC.String(name)
	name = truncateRunes(name, maxBaseNameRunes)
	return strings.TrimRight(name, ". ")
}

func truncateRunes(name string, limit int) string {
	runes := []rune(name)
	if len(runes) <= limit {
		return name
	}
	return string(runes[:limit])
}
