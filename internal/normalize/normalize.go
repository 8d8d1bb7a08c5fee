// Package normalize canonicalizes operator-entered names before they are
// compared or stored.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title trims s, collapses inner whitespace, and title-cases every word:
// "  the  hobbit " becomes "The Hobbit".
func Title(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	// A cases.Caser is stateful, so each call gets its own.
	return cases.Title(language.Und).String(s)
}

// Upper trims s and upper-cases it. Class and house names use this form.
func Upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
