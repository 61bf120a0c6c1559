package querybuilders

import "strings"

// SanitizeIdentifier strips every character outside [A-Za-z0-9_] and
// prefixes an underscore when the result would start with a digit. Values
// are always bound as parameters; this guard exists for the structural
// positions (tag names, table names) that must be interpolated into SQL
// text. An empty result means the input held no allowed characters.
func SanitizeIdentifier(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

// sanitizeTable sanitizes a table name, falling back to the given default
// when the name is fully stripped.
func sanitizeTable(table, fallback string) string {
	out := SanitizeIdentifier(table)
	if out == "" {
		return fallback
	}
	return out
}
