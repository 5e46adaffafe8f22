// Package search implements text normalization and the
// filter + search + pagination query pipeline over projected records.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s, strips diacritics, collapses whitespace runs
// to a single space and trims. It is the shared contract for the search
// blob and the query text.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		stripped = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(stripped), " ")
}

// Terms normalizes a query and splits it into its search terms
func Terms(query string) []string {
	return strings.Fields(Normalize(query))
}
