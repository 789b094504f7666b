package remote

import (
	"strings"
	"unicode"
)

// ToSnake converts a camelCase field name to snake_case. A run of capitals
// is one word, so "avatarURL" becomes "avatar_url" and "HTTPServer" becomes
// "http_server".
func ToSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ToCamel converts a snake_case column name to camelCase. Leading
// underscores are kept. Acronyms do not survive the trip; the schema's
// field map covers them.
func ToCamel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	upper := false
	for i, r := range s {
		if r == '_' {
			if b.Len() == 0 || strings.Trim(s[:i], "_") == "" {
				b.WriteRune(r)
				continue
			}
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
