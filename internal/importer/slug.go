package importer

import (
	"strings"
	"unicode"
)

// Slugify derives a canonical slug: lowercase, trim, "&" becomes "and",
// apostrophes are dropped, runs of non-alphanumerics collapse to a single
// hyphen, leading/trailing hyphens are trimmed. Two different inputs may
// produce the same slug; slugs are cosmetic, not identity.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, "’", "")

	var b strings.Builder
	lastSep := true // suppress a leading separator
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSep = false
		} else if !lastSep {
			b.WriteRune('-')
			lastSep = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// NormalizeSourceURL trims whitespace and strips trailing slashes so that
// "https://x.com/1" and "https://x.com/1/" resolve to the same identity.
func NormalizeSourceURL(raw string) string {
	raw = strings.TrimSpace(raw)
	for strings.HasSuffix(raw, "/") {
		raw = strings.TrimSuffix(raw, "/")
	}
	return raw
}

// NameFromSlug derives a human-readable name from a slug: separators become
// spaces and each word is title-cased. Used when auto-creating taxonomy
// entries referenced for the first time.
func NameFromSlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			r[0] = unicode.ToUpper(r[0])
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// SplitList splits a comma-separated cell into trimmed, non-empty tokens.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
