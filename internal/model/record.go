package model

import (
	"strings"
	"time"
)

// RawDocument is the source text of one ingestion cycle
type RawDocument struct {
	Text      string    `json:"text"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Record is one projected row: selected header label -> trimmed value
type Record struct {
	Position int               `json:"position"` // 1-based, document order
	Fields   map[string]string `json:"fields"`
	Blob     string            `json:"-"` // Normalized search blob
}

// Get returns the trimmed value stored under key, or "" when absent
func (r Record) Get(key string) string {
	return strings.TrimSpace(r.Fields[key])
}

// Row re-serializes the record in the given header order
func (r Record) Row(headers []string) []string {
	row := make([]string, len(headers))
	for i, h := range headers {
		row[i] = r.Fields[h]
	}
	return row
}

// FilterDefinition is a derived categorical facet
type FilterDefinition struct {
	Key    string   `json:"key"`
	Label  string   `json:"label"`
	Values []string `json:"values"`
}

// FilterState maps a filter key to its selected value.
// A missing key means no constraint on that column.
type FilterState map[string]string

// Set selects value for key; an empty value removes the constraint
func (f FilterState) Set(key, value string) {
	if value == "" {
		delete(f, key)
		return
	}
	f[key] = value
}

// Prune returns a copy keeping only keys that still have a definition
func (f FilterState) Prune(defs []FilterDefinition) FilterState {
	valid := make(map[string]bool, len(defs))
	for _, d := range defs {
		valid[d.Key] = true
	}
	out := make(FilterState, len(f))
	for k, v := range f {
		if valid[k] {
			out[k] = v
		}
	}
	return out
}

// QueryState is everything a caller controls about a query
type QueryState struct {
	Search   string      `json:"search"`
	Filters  FilterState `json:"filters,omitempty"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// Page is one paginated slice of matching records
type Page struct {
	Records    []Record `json:"records"`
	Total      int      `json:"total"`
	TotalPages int      `json:"total_pages"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
}
