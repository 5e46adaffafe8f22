package extract

import (
	"strings"

	"github.com/ppiankov/tabfind/internal/model"
	"github.com/ppiankov/tabfind/internal/search"
	"github.com/ppiankov/tabfind/internal/tsv"
)

// Projection is the selected-column view of a parsed table
type Projection struct {
	Indexes []int
	Headers []string
	Records []model.Record
}

// SelectColumns keeps the configured positions that exist in a table
// with headerCount columns, preserving configured order.
func SelectColumns(columns []int, headerCount int) []int {
	out := make([]int, 0, len(columns))
	for _, idx := range columns {
		if idx >= 0 && idx < headerCount {
			out = append(out, idx)
		}
	}
	return out
}

// ResolveHeader returns the trimmed header label, or the positional
// fallback label when the header is empty.
func ResolveHeader(header string, idx int) string {
	if h := strings.TrimSpace(header); h != "" {
		return h
	}
	return tsv.FallbackLabel(idx)
}

// Project maps every non-empty row of table to a Record over the
// selected columns. It holds no state between calls.
func Project(table *tsv.Table, columns []int) Projection {
	indexes := SelectColumns(columns, len(table.Headers))
	headers := make([]string, len(indexes))
	for j, idx := range indexes {
		headers[j] = ResolveHeader(table.Headers[idx], idx)
	}

	records := make([]model.Record, 0, len(table.Rows))
	for _, row := range table.Rows {
		if isEmptyRow(row) {
			continue
		}
		fields := make(map[string]string, len(indexes))
		for j, idx := range indexes {
			var v string
			if idx < len(row) {
				v = row[idx]
			}
			fields[headers[j]] = strings.TrimSpace(v)
		}
		records = append(records, model.Record{
			Position: len(records) + 1,
			Fields:   fields,
			Blob:     SearchBlob(fields, headers),
		})
	}

	return Projection{Indexes: indexes, Headers: headers, Records: records}
}

// SearchBlob joins the non-empty values in header order and normalizes them
func SearchBlob(fields map[string]string, headers []string) string {
	parts := make([]string, 0, len(headers))
	for _, h := range headers {
		if v := fields[h]; v != "" {
			parts = append(parts, v)
		}
	}
	return search.Normalize(strings.Join(parts, " | "))
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
