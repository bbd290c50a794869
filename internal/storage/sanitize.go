package storage

import "strings"

// SanitizeIdentifier strips every character outside [a-zA-Z0-9_] from s.
// Every table or index name interpolated into dynamic SQL MUST pass through
// here first; parameters cannot be bound for identifiers, so this is the
// only line of defense against injection via a crafted project id.
func SanitizeIdentifier(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
