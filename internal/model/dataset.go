package model

import (
	"fmt"
	"time"
)

// Dataset is the in-memory result of one successful ingestion.
// It is replaced wholesale on every ingest and never mutated afterwards.
type Dataset struct {
	Raw        RawDocument        `json:"-"`
	AllHeaders []string           `json:"all_headers"` // Every header in the document
	Indexes    []int              `json:"indexes"`     // Selected column positions
	Headers    []string           `json:"headers"`     // Resolved labels for Indexes
	Records    []Record           `json:"-"`
	Filters    []FilterDefinition `json:"filters"`
	ContactKey string             `json:"contact_key,omitempty"`
	UpdatedAt  time.Time          `json:"updated_at"`
	Origin     Origin             `json:"origin"`
	Generation uint64             `json:"generation"`
}

// Len returns the number of records
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Record returns the record at 1-based position n in document order
func (d *Dataset) Record(n int) (Record, error) {
	if d == nil || n < 1 || n > len(d.Records) {
		return Record{}, fmt.Errorf("%w: %d", ErrRecordNotFound, n)
	}
	return d.Records[n-1], nil
}

// Origin describes where the active data set came from
type Origin string

const (
	OriginNetwork    Origin = "network"     // Fresh fetch
	OriginCache      Origin = "cache"       // Cached entry within TTL
	OriginStaleCache Origin = "stale_cache" // Cached entry past TTL, kept as fallback
	OriginMemory     Origin = "memory"      // Previously loaded data kept after a failed refresh
)

// LoadResult reports the outcome of a load or refresh
type LoadResult struct {
	Origin    Origin    `json:"origin"`
	Records   int       `json:"records"`
	UpdatedAt time.Time `json:"updated_at"`
	Stale     bool      `json:"stale"`
	Warning   string    `json:"warning,omitempty"` // Advisory transport or persistence message
}
