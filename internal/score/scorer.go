// Package score ranks selected columns as candidate categorical filters.
package score

import (
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ppiankov/tabfind/internal/extract"
	"github.com/ppiankov/tabfind/internal/model"
)

// Rejection reasons reported on candidates
const (
	ReasonContact     = "contact_column"
	ReasonTooSparse   = "too_sparse"
	ReasonConstant    = "constant"
	ReasonTooFine     = "too_many_values"
	ReasonOutOfBudget = "below_max_filters"
)

// Heuristic holds the thresholds used to accept and rank filter columns
type Heuristic struct {
	MinFilled         int     // Absolute minimum non-empty values
	MinFillRatio      float64 // Minimum share of non-empty values
	MaxUnique         int     // More distinct values than this reads as free text
	TruncateLen       int     // Values are deduplicated on this many leading runes
	FillWeight        float64
	CardinalityWeight float64
	MaxFilters        int
	Locale            language.Tag
}

// NewHeuristic builds a Heuristic from configuration
func NewHeuristic(cfg model.HeuristicConfig, maxFilters int, locale string) *Heuristic {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Spanish
	}
	if maxFilters <= 0 {
		maxFilters = 6
	}
	return &Heuristic{
		MinFilled:         cfg.MinFilled,
		MinFillRatio:      cfg.MinFillRatio,
		MaxUnique:         cfg.MaxUnique,
		TruncateLen:       cfg.TruncateLen,
		FillWeight:        cfg.FillWeight,
		CardinalityWeight: cfg.CardinalityWeight,
		MaxFilters:        maxFilters,
		Locale:            tag,
	}
}

// DefaultHeuristic returns the heuristic with default thresholds
func DefaultHeuristic() *Heuristic {
	cfg := model.DefaultConfig()
	return NewHeuristic(cfg.Heuristic, cfg.Query.MaxFilters, cfg.Query.Locale)
}

// Candidate is the transparent evaluation of one column
type Candidate struct {
	Key      string                 `json:"key"`
	Filled   int                    `json:"filled"`
	Total    int                    `json:"total"`
	Unique   int                    `json:"unique"`
	Score    float64                `json:"score"`
	Accepted bool                   `json:"accepted"`
	Reason   string                 `json:"reason,omitempty"`
	Values   []string               `json:"-"` // Distinct truncated values, first-seen order
	Data     map[string]interface{} `json:"data,omitempty"`
}

// MinFilledFor returns the non-empty count a column needs among total records
func (h *Heuristic) MinFilledFor(total int) int {
	threshold := int(math.Floor(float64(total) * h.MinFillRatio))
	if threshold < h.MinFilled {
		threshold = h.MinFilled
	}
	return threshold
}

// Score rewards high fill ratio and moderate cardinality
func (h *Heuristic) Score(filled, total, unique int) float64 {
	if total <= 0 {
		total = 1
	}
	ratio := float64(filled) / float64(total)
	return ratio*h.FillWeight + float64(h.MaxUnique-unique)*h.CardinalityWeight
}

// Evaluate decides whether a column with the given raw values makes a
// useful filter among total records.
func (h *Heuristic) Evaluate(key string, values []string, total int) Candidate {
	if total <= 0 {
		total = 1
	}

	c := Candidate{Key: key, Total: total}

	var filled []string
	for _, v := range values {
		if v != "" {
			filled = append(filled, v)
		}
	}
	c.Filled = len(filled)

	minFilled := h.MinFilledFor(total)
	if c.Filled < minFilled {
		c.Reason = ReasonTooSparse
		c.Data = map[string]interface{}{
			"filled":     c.Filled,
			"min_filled": minFilled,
			"formula":    fmt.Sprintf("max(%d, floor(total * %.2f))", h.MinFilled, h.MinFillRatio),
		}
		return c
	}

	seen := make(map[string]int)
	for _, v := range filled {
		k := h.truncate(v)
		if _, ok := seen[k]; !ok {
			c.Values = append(c.Values, k)
		}
		seen[k]++
	}
	c.Unique = len(c.Values)

	switch {
	case c.Unique <= 1:
		c.Reason = ReasonConstant
	case c.Unique > h.MaxUnique:
		c.Reason = ReasonTooFine
	default:
		c.Accepted = true
		c.Score = h.Score(c.Filled, total, c.Unique)
	}

	c.Data = map[string]interface{}{
		"filled":     c.Filled,
		"total":      total,
		"unique":     c.Unique,
		"max_unique": h.MaxUnique,
		"score":      c.Score,
		"formula":    fmt.Sprintf("(filled / total) * %g + (%d - unique) * %g", h.FillWeight, h.MaxUnique, h.CardinalityWeight),
	}
	return c
}

// EvaluateAll scores every selected column except the contact column.
// Candidates come back in header order.
func (h *Heuristic) EvaluateAll(records []model.Record, headers []string, contactKey string) []Candidate {
	total := len(records)
	if total == 0 {
		total = 1
	}

	candidates := make([]Candidate, 0, len(headers))
	for _, key := range headers {
		if key == "" {
			continue
		}
		if contactKey != "" && key == contactKey {
			candidates = append(candidates, Candidate{Key: key, Total: total, Reason: ReasonContact})
			continue
		}
		values := make([]string, len(records))
		for i, r := range records {
			values[i] = r.Get(key)
		}
		candidates = append(candidates, h.Evaluate(key, values, total))
	}
	return candidates
}

// Build returns at most MaxFilters definitions ranked by descending score.
// Each definition's values are sorted with locale-aware, case- and
// accent-insensitive collation.
func (h *Heuristic) Build(records []model.Record, headers []string, contactKey string) []model.FilterDefinition {
	defs, _ := h.BuildWithCandidates(records, headers, contactKey)
	return defs
}

// BuildWithCandidates is Build plus the evaluation of every column
func (h *Heuristic) BuildWithCandidates(records []model.Record, headers []string, contactKey string) ([]model.FilterDefinition, []Candidate) {
	candidates := h.EvaluateAll(records, headers, contactKey)

	var accepted []int
	for i, c := range candidates {
		if c.Accepted {
			accepted = append(accepted, i)
		}
	}
	sort.SliceStable(accepted, func(a, b int) bool {
		return candidates[accepted[a]].Score > candidates[accepted[b]].Score
	})

	if len(accepted) > h.MaxFilters {
		for _, i := range accepted[h.MaxFilters:] {
			candidates[i].Accepted = false
			candidates[i].Reason = ReasonOutOfBudget
		}
		accepted = accepted[:h.MaxFilters]
	}

	coll := collate.New(h.Locale, collate.IgnoreCase, collate.IgnoreDiacritics, collate.IgnoreWidth)
	defs := make([]model.FilterDefinition, 0, len(accepted))
	for _, i := range accepted {
		c := candidates[i]
		values := append([]string(nil), c.Values...)
		sort.SliceStable(values, func(a, b int) bool {
			return coll.CompareString(values[a], values[b]) < 0
		})
		defs = append(defs, model.FilterDefinition{
			Key:    c.Key,
			Label:  extract.PrettifyLabel(c.Key),
			Values: values,
		})
	}
	return defs, candidates
}

func (h *Heuristic) truncate(v string) string {
	if h.TruncateLen <= 0 || utf8.RuneCountInString(v) <= h.TruncateLen {
		return v
	}
	return string([]rune(v)[:h.TruncateLen])
}
