package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/tabfind/internal/model"
)

const (
	titleColumns = 3  // Title candidates come from the first columns
	maxChips     = 4  // Title chip plus short values
	maxChipLen   = 26 // Longer values are not chip material
)

// PrettifyLabel turns a header into a display label
func PrettifyLabel(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Title picks a display title for a record: the first non-empty value
// among the first columns, else any non-empty value.
func Title(r model.Record, headers []string) string {
	n := titleColumns
	if n > len(headers) {
		n = len(headers)
	}
	for _, h := range headers[:n] {
		if v := r.Get(h); v != "" {
			return v
		}
	}
	for _, h := range headers {
		if v := r.Get(h); v != "" {
			return v
		}
	}
	return ""
}

// Chips returns the title followed by a few short distinct values
func Chips(r model.Record, headers []string) []string {
	var chips []string
	title := Title(r, headers)
	if title != "" {
		chips = append(chips, title)
	}

	for _, h := range headers {
		if len(chips) >= maxChips {
			break
		}
		v := r.Get(h)
		if v == "" || v == title || utf8.RuneCountInString(v) > maxChipLen {
			continue
		}
		chips = append(chips, v)
	}
	return chips
}
