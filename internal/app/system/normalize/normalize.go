// Package normalize canonicalizes user-entered values before they are
// stored or compared.
package normalize

import "strings"

// Email trims and lowercases an email address. Emails are unique on this
// normalized form.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses internal runs of spaces.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Phone keeps digits and a single leading '+'.
func Phone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Text trims surrounding whitespace from free-form text.
func Text(s string) string {
	return strings.TrimSpace(s)
}
