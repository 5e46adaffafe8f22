package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/tabfind/internal/model"
	"github.com/ppiankov/tabfind/internal/pipeline"
)

func sheet(n int) string {
	sedes := []string{"Norte", "Centro", "Sur"}
	var b strings.Builder
	b.WriteString("Nombre\tSede\tWhatsApp\tNivel\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Persona %c%c\t%s\t310 555 00%02d\tNivel %d\n", 'A'+i%26, 'a'+i/26, sedes[i%3], i, i%4)
	}
	return b.String()
}

func newTestServer(t *testing.T, source string, doc string) (*Server, *pipeline.Pipeline) {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Source.URL = source
	fetcher := pipeline.NewFetcher(5*time.Second, "test-agent", 1<<20, false, "", "", "")
	p := pipeline.NewPipeline(cfg, fetcher, nil, nil)
	if doc != "" {
		_, err := p.Ingest(model.RawDocument{Text: doc, FetchedAt: time.Now()})
		require.NoError(t, err)
	}
	return New(p, nil), p
}

func get(t *testing.T, h http.Handler, target string, v any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if v != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
	}
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, "", sheet(12))

	var body map[string]any
	rec := get(t, s, "/healthz", &body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 12, body["records"])
}

func TestHeadersAndFilters(t *testing.T) {
	s, _ := newTestServer(t, "", sheet(30))

	var headers map[string]any
	get(t, s, "/api/headers", &headers)
	assert.Equal(t, []any{"Nombre", "Sede", "WhatsApp", "Nivel"}, headers["headers"])
	assert.Equal(t, "WhatsApp", headers["contact_key"])

	var filters []model.FilterDefinition
	get(t, s, "/api/filters", &filters)
	require.NotEmpty(t, filters)
	for _, f := range filters {
		assert.NotEqual(t, "WhatsApp", f.Key)
	}
	assert.Equal(t, "Sede", filters[0].Key)
	assert.Equal(t, []string{"Centro", "Norte", "Sur"}, filters[0].Values)
}

func TestRecords_QueryFiltersAndPages(t *testing.T) {
	s, _ := newTestServer(t, "", sheet(60))

	var page pageView
	rec := get(t, s, "/api/records?f.Sede=Sur&page_size=7&page=2", &page)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 20, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Records, 7)
	for _, r := range page.Records {
		assert.Equal(t, "Sur", r.Fields["Sede"])
		assert.NotEmpty(t, r.Title)
	}

	get(t, s, "/api/records?q=persona+fa", &page)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, 6, page.Records[0].Position)

	get(t, s, "/api/records?page=99", &page)
	assert.Equal(t, 3, page.Page, "page clamps to the last page")
	assert.Equal(t, 25, page.PageSize)
}

func TestRecords_UnknownFilterIgnored(t *testing.T) {
	s, _ := newTestServer(t, "", sheet(30))

	var page pageView
	get(t, s, "/api/records?f.Inexistente=x", &page)
	assert.Equal(t, 30, page.Total)
}

func TestRecordDetail(t *testing.T) {
	s, _ := newTestServer(t, "", sheet(5))

	var detail struct {
		Position int      `json:"position"`
		Row      []string `json:"row"`
		Contact  string   `json:"contact"`
		Link     string   `json:"link"`
		Summary  string   `json:"summary"`
	}
	rec := get(t, s, "/api/records/3", &detail)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 3, detail.Position)
	assert.Equal(t, []string{"Persona Ca", "Sur", "310 555 0002", "Nivel 2"}, detail.Row)
	assert.Equal(t, "310 555 0002", detail.Contact)
	assert.Equal(t, "https://wa.me/573105550002", detail.Link)
	assert.Contains(t, detail.Summary, "Nombre: Persona Ca")
}

func TestRecordDetail_Errors(t *testing.T) {
	s, _ := newTestServer(t, "", sheet(5))

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/records/6", nil).Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/records/abc", nil).Code)
}

func TestEmptyServer(t *testing.T) {
	s, _ := newTestServer(t, "", "")

	var page pageView
	get(t, s, "/api/records", &page)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 1, page.Page)

	var filters []model.FilterDefinition
	get(t, s, "/api/filters", &filters)
	assert.Empty(t, filters)
}

func TestRefresh(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, sheet(9))
	}))
	defer upstream.Close()

	s, p := newTestServer(t, upstream.URL, "")

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res model.LoadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, model.OriginNetwork, res.Origin)
	assert.Equal(t, 9, res.Records)
	assert.Equal(t, 9, p.Dataset().Len())
}

func TestRefresh_NoSource(t *testing.T) {
	s, _ := newTestServer(t, "", "")

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestQueryFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/records?q=ana&page=x&page_size=10&f.Sede=Norte&f.Nivel=", nil)
	q := QueryFromRequest(r)

	assert.Equal(t, "ana", q.Search)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 10, q.PageSize)
	assert.Equal(t, model.FilterState{"Sede": "Norte"}, q.Filters)
}
