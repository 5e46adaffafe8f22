package search

import (
	"strings"

	"github.com/ppiankov/tabfind/internal/model"
)

// DefaultPageSize is used when a query carries a non-positive page size
const DefaultPageSize = 25

// Run applies filters, then search terms, then pagination.
// It is a pure function of its inputs.
func Run(records []model.Record, q model.QueryState) model.Page {
	matched := Search(Filter(records, q.Filters), q.Search)
	return Paginate(matched, q.Page, q.PageSize)
}

// Filter keeps records whose trimmed value equals the selected value for
// every constrained key. Matching is exact and case-sensitive; a record with
// an empty value at a constrained key never matches.
func Filter(records []model.Record, filters model.FilterState) []model.Record {
	active := 0
	for _, want := range filters {
		if want != "" {
			active++
		}
	}
	if active == 0 {
		return records
	}

	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if matchesFilters(r, filters) {
			out = append(out, r)
		}
	}
	return out
}

func matchesFilters(r model.Record, filters model.FilterState) bool {
	for key, want := range filters {
		if want == "" {
			continue
		}
		got := r.Get(key)
		if got == "" || got != want {
			return false
		}
	}
	return true
}

// Search keeps records whose blob contains every normalized term
func Search(records []model.Record, query string) []model.Record {
	terms := Terms(query)
	if len(terms) == 0 {
		return records
	}

	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if MatchesTerms(r.Blob, terms) {
			out = append(out, r)
		}
	}
	return out
}

// MatchesTerms reports whether blob contains all terms as substrings
func MatchesTerms(blob string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(blob, t) {
			return false
		}
	}
	return true
}

// TotalPages returns ceil(total/pageSize), or 0 when nothing matched
func TotalPages(total, pageSize int) int {
	if total <= 0 {
		return 0
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return (total + pageSize - 1) / pageSize
}

// ClampPage forces page into [1, totalPages], or 1 when there are no pages
func ClampPage(page, totalPages int) int {
	if totalPages == 0 || page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Paginate slices matched records into the requested 1-based page
func Paginate(matched []model.Record, page, pageSize int) model.Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := len(matched)
	pages := TotalPages(total, pageSize)
	page = ClampPage(page, pages)

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return model.Page{
		Records:    matched[start:end],
		Total:      total,
		TotalPages: pages,
		Page:       page,
		PageSize:   pageSize,
	}
}
