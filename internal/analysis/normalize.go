// internal/analysis/normalize.go
package analysis

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, drops combining marks and recomposes, so
// "Česká" and "Ceska" fold to the same bytes.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes free text for keyword matching: diacritics are
// stripped, everything is lowercased, anything that is not a letter or digit
// becomes a space and runs of whitespace collapse to a single space.
// Normalize is idempotent and returns "" for empty input.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	stripped, _, err := transform.String(stripMarks, text)
	if err != nil {
		stripped = text
	}
	stripped = strings.ToLower(stripped)

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
