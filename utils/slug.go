package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const PathSeparator = "/"

// DeriveSlug turns display text into a lowercase, hyphen-joined token of [a-z0-9].
// Accented letters are folded to their base letter; anything else separates words.
// Slugging a slug returns it unchanged.
func DeriveSlug(text string) string {
	folder := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	separate := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if separate && b.Len() > 0 {
				b.WriteByte('-')
			}
			separate = false
			b.WriteRune(r)
			continue
		}
		separate = true
	}
	return b.String()
}

func ComposePath(categorySlug, seriesSlug, testSlug string) string {
	return categorySlug + PathSeparator + seriesSlug + PathSeparator + testSlug
}

// SplitPath returns the three segments of a composite path, or ok=false when the path
// does not have exactly three non-empty segments.
func SplitPath(path string) (category, series, test string, ok bool) {
	parts := strings.Split(strings.Trim(path, PathSeparator), PathSeparator)
	if len(parts) != 3 {
		return "", "", "", false
	}
	for _, p := range parts {
		if p == "" {
			return "", "", "", false
		}
	}
	return parts[0], parts[1], parts[2], true
}
