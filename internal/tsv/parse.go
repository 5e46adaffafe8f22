// Package tsv parses tab-separated spreadsheet exports.
//
// Only the tab character is a delimiter. There is no quoting or escaping:
// a literal tab inside a field cannot be represented.
package tsv

import (
	"strings"

	"github.com/ppiankov/tabfind/internal/model"
)

// Table is a header row plus a rectangular row matrix
type Table struct {
	Headers []string
	Rows    [][]string
}

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Parse converts raw text into a Table.
// Every row is padded or truncated to the header count.
func Parse(text string) (*Table, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.ErrEmptyDocument
	}

	var lines []string
	for _, line := range strings.Split(lineEndings.Replace(text), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, model.ErrMissingHeaders
	}

	headers := strings.Split(lines[0], "\t")
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		cells := strings.Split(line, "\t")
		row := make([]string, len(headers))
		copy(row, cells)
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: rows}, nil
}

// FormatRow joins cells back into one tab-separated line
func FormatRow(cells []string) string {
	return strings.Join(cells, "\t")
}

// ColumnLetters converts a zero-based column position to spreadsheet letters:
// 0 -> A, 25 -> Z, 26 -> AA.
func ColumnLetters(idx int) string {
	if idx < 0 {
		return ""
	}
	n := idx + 1
	var buf []byte
	for n > 0 {
		mod := (n - 1) % 26
		buf = append([]byte{byte('A' + mod)}, buf...)
		n = (n - 1) / 26
	}
	return string(buf)
}

// FallbackLabel is the label used for a column with an empty header
func FallbackLabel(idx int) string {
	return "Col " + ColumnLetters(idx)
}
