package score

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/tabfind/internal/model"
)

// column returns total values of which the first filled cycle through
// unique distinct strings; the rest are empty.
func column(total, filled, unique int) []string {
	values := make([]string, total)
	for i := 0; i < filled; i++ {
		values[i] = fmt.Sprintf("v%02d", i%unique)
	}
	return values
}

// records builds records from named columns of equal length
func records(cols map[string][]string) []model.Record {
	var n int
	for _, v := range cols {
		n = len(v)
		break
	}
	out := make([]model.Record, n)
	for i := range out {
		fields := make(map[string]string, len(cols))
		for k, v := range cols {
			fields[k] = v[i]
		}
		out[i] = model.Record{Fields: fields}
	}
	return out
}

func TestHeuristic_AcceptsModerateColumn(t *testing.T) {
	h := DefaultHeuristic()

	c := h.Evaluate("Sede", column(100, 30, 5), 100)
	if !c.Accepted {
		t.Fatalf("Expected column with 30/100 filled and 5 values to be accepted, got reason %q", c.Reason)
	}
	if c.Filled != 30 || c.Unique != 5 {
		t.Errorf("Expected filled=30 unique=5, got filled=%d unique=%d", c.Filled, c.Unique)
	}

	want := 10*0.3 + 0.12*35
	if diff := c.Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected score %.4f, got %.4f", want, c.Score)
	}
	if c.Data["formula"] == nil {
		t.Error("Expected formula in transparent data")
	}
}

func TestHeuristic_RejectsSparseColumn(t *testing.T) {
	h := DefaultHeuristic()

	c := h.Evaluate("Notas", column(100, 3, 3), 100)
	if c.Accepted {
		t.Error("Expected column with 3/100 filled to be rejected")
	}
	if c.Reason != ReasonTooSparse {
		t.Errorf("Expected reason %q, got %q", ReasonTooSparse, c.Reason)
	}
}

func TestHeuristic_MinFilledFloor(t *testing.T) {
	h := DefaultHeuristic()

	tests := []struct {
		total int
		want  int
	}{
		{1, 10},
		{20, 10},
		{40, 10},
		{44, 11},
		{100, 25},
		{1000, 250},
	}
	for _, tt := range tests {
		if got := h.MinFilledFor(tt.total); got != tt.want {
			t.Errorf("MinFilledFor(%d) = %d, want %d", tt.total, got, tt.want)
		}
	}
}

func TestHeuristic_CardinalityBounds(t *testing.T) {
	h := DefaultHeuristic()

	if c := h.Evaluate("Pais", column(50, 50, 1), 50); c.Accepted || c.Reason != ReasonConstant {
		t.Errorf("Expected constant column rejected, got accepted=%v reason=%q", c.Accepted, c.Reason)
	}
	if c := h.Evaluate("Edad", column(100, 100, 40), 100); !c.Accepted {
		t.Errorf("Expected 40 distinct values accepted, got reason %q", c.Reason)
	}
	if c := h.Evaluate("Nombre", column(100, 100, 41), 100); c.Accepted || c.Reason != ReasonTooFine {
		t.Errorf("Expected 41 distinct values rejected, got accepted=%v reason=%q", c.Accepted, c.Reason)
	}
}

func TestHeuristic_TruncatedDedup(t *testing.T) {
	h := DefaultHeuristic()

	long := strings.Repeat("x", 80)
	values := make([]string, 20)
	for i := range values {
		switch i % 3 {
		case 0:
			values[i] = long + "A"
		case 1:
			values[i] = long + "B"
		default:
			values[i] = "corto"
		}
	}

	c := h.Evaluate("Bio", values, 20)
	if c.Unique != 2 {
		t.Errorf("Expected values sharing an 80-rune prefix to collapse, got %d unique", c.Unique)
	}
	for _, v := range c.Values {
		if len([]rune(v)) > 80 {
			t.Errorf("Expected truncated value, got length %d", len([]rune(v)))
		}
	}
}

func TestHeuristic_BuildRanksAndSkipsContact(t *testing.T) {
	h := DefaultHeuristic()
	h.MaxFilters = 2

	recs := records(map[string][]string{
		"Celular":     column(40, 40, 5),
		"Sede":        column(40, 40, 3),  // full, few values: best
		"Instrumento": column(40, 40, 20), // full, more values
		"Nivel":       column(40, 20, 4),  // half filled
		"Nombre":      column(40, 40, 40), // one per record but still <= 40
	})
	headers := []string{"Celular", "Nombre", "Instrumento", "Nivel", "Sede"}

	defs, candidates := h.BuildWithCandidates(recs, headers, "Celular")

	if len(defs) != 2 {
		t.Fatalf("Expected 2 definitions, got %d", len(defs))
	}
	if defs[0].Key != "Sede" || defs[1].Key != "Instrumento" {
		t.Errorf("Expected Sede then Instrumento, got %s then %s", defs[0].Key, defs[1].Key)
	}

	reasons := map[string]string{}
	for _, c := range candidates {
		reasons[c.Key] = c.Reason
	}
	if reasons["Celular"] != ReasonContact {
		t.Errorf("Expected contact column skipped, got %q", reasons["Celular"])
	}
	if reasons["Nivel"] != ReasonOutOfBudget || reasons["Nombre"] != ReasonOutOfBudget {
		t.Errorf("Expected lower-ranked columns out of budget, got %v", reasons)
	}
}

func TestHeuristic_BuildStableTies(t *testing.T) {
	h := DefaultHeuristic()

	recs := records(map[string][]string{
		"B": column(20, 20, 4),
		"A": column(20, 20, 4),
	})
	defs := h.Build(recs, []string{"B", "A"}, "")
	if len(defs) != 2 || defs[0].Key != "B" || defs[1].Key != "A" {
		t.Errorf("Expected tied scores to keep header order, got %+v", defs)
	}
}

func TestHeuristic_ValuesCollated(t *testing.T) {
	h := DefaultHeuristic()

	base := []string{"zeta", "Árbol", "beta", "alfa", "Ñandú", "mano", "Oso"}
	values := make([]string, 0, 21)
	for i := 0; i < 3; i++ {
		values = append(values, base...)
	}
	recs := make([]model.Record, len(values))
	for i, v := range values {
		recs[i] = model.Record{Fields: map[string]string{"Palabra": v}}
	}

	defs := h.Build(recs, []string{"Palabra"}, "")
	if len(defs) != 1 {
		t.Fatalf("Expected 1 definition, got %d", len(defs))
	}

	want := []string{"alfa", "Árbol", "beta", "mano", "Ñandú", "Oso", "zeta"}
	if !reflect.DeepEqual(defs[0].Values, want) {
		t.Errorf("Expected %v, got %v", want, defs[0].Values)
	}
}

func TestHeuristic_LabelsPrettified(t *testing.T) {
	h := DefaultHeuristic()
	recs := records(map[string][]string{"sede_principal": column(12, 12, 2)})

	defs := h.Build(recs, []string{"sede_principal"}, "")
	if len(defs) != 1 || defs[0].Label != "sede principal" {
		t.Errorf("Expected prettified label, got %+v", defs)
	}
}

func TestHeuristic_EmptyRecords(t *testing.T) {
	if defs := DefaultHeuristic().Build(nil, []string{"A", "B"}, ""); len(defs) != 0 {
		t.Errorf("Expected no definitions for empty data, got %d", len(defs))
	}
}

func TestNewHeuristic_BadLocale(t *testing.T) {
	cfg := model.DefaultConfig()
	h := NewHeuristic(cfg.Heuristic, 0, "not a locale!!")
	if h.MaxFilters != 6 {
		t.Errorf("Expected default max filters 6, got %d", h.MaxFilters)
	}
	if h.Locale.String() != "es" {
		t.Errorf("Expected fallback locale es, got %s", h.Locale)
	}
}
