package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/GriffinCanCode/vitibrasil/internal/catalog"
	"github.com/GriffinCanCode/vitibrasil/internal/sweep"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(f float64) *float64 { return &f }
func sp(s string) *string   { return &s }

type fakeSweeper struct {
	catalog *catalog.Catalog
	records []sweep.Record
	err     error

	mu    sync.Mutex
	calls [][]int
}

func (f *fakeSweeper) Catalog() *catalog.Catalog { return f.catalog }

func (f *fakeSweeper) Aggregate(_ context.Context, category string, years []int) (*sweep.Table, error) {
	f.mu.Lock()
	f.calls = append(f.calls, years)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	cat, err := f.catalog.Get(category)
	if err != nil {
		return nil, err
	}
	table := &sweep.Table{Category: cat, Stats: sweep.Stats{ID: "sweep-1", Category: category, Years: years}}
	for _, r := range f.records {
		if r.Category == category && slices.Contains(years, r.YearInt()) {
			table.Records = append(table.Records, r)
		}
	}
	table.Stats.Records = len(table.Records)
	return table, nil
}

type fakeStore struct {
	records []sweep.Record
	sweeps  []sweep.Stats
	err     error
}

func (s *fakeStore) UpsertRecords(_ context.Context, records []sweep.Record) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.records = append(s.records, records...)
	return len(records), nil
}

func (s *fakeStore) QueryRecords(_ context.Context, category string, f sweep.Filter) ([]sweep.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []sweep.Record
	for _, r := range s.records {
		if r.Category == category && f.Match(&r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) RecordSweep(_ context.Context, st sweep.Stats) error {
	s.sweeps = append(s.sweeps, st)
	return nil
}

func (s *fakeStore) ListSweeps(_ context.Context, category string, limit int) ([]sweep.Stats, error) {
	var out []sweep.Stats
	for _, st := range s.sweeps {
		if category == "" || st.Category == category {
			out = append(out, st)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) Ping(context.Context) error { return s.err }

func producaoRecords() []sweep.Record {
	return []sweep.Record{
		{Category: "producao", Entity: "tinto", Quantity: fp(100), Tipo: sp("vinho_de_mesa"), Year: "2023"},
		{Category: "producao", Entity: "branco", Quantity: fp(40), Tipo: sp("vinho_de_mesa"), Year: "2023"},
		{Category: "producao", Entity: "tinto", Quantity: fp(90), Tipo: sp("vinho_de_mesa"), Year: "2024"},
		{Category: "producao", Entity: "suco", Tipo: sp("derivados"), Year: "2024"},
	}
}

func setupRouter(sweeper Sweeper, store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandlers(sweeper, store, nil).Register(router, nil)
	return router
}

func do(t *testing.T, router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeRows(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	return rows
}

func TestScrape(t *testing.T) {
	sweeper := &fakeSweeper{catalog: catalog.Default(), records: producaoRecords()}
	router := setupRouter(sweeper, nil)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantRows   int
	}{
		{"latest year by default", "", http.StatusOK, 2},
		{"repeated years", "?ano=2023&ano=2024", http.StatusOK, 4},
		{"comma separated years", "?ano=2023,2024", http.StatusOK, 4},
		{"entity filter ignores case", "?ano=2023&chave=TINTO", http.StatusOK, 1},
		{"tipo filter", "?ano=2024&tipo=derivados", http.StatusOK, 1},
		{"quantity range drops missing", "?ano=2024&quantidadeMinima=0", http.StatusOK, 1},
		{"inverted range", "?quantidadeMinima=10&quantidadeMaxima=1", http.StatusBadRequest, 0},
		{"bad number", "?valorMinimo=abc", http.StatusBadRequest, 0},
		{"year out of range", "?ano=1900", http.StatusBadRequest, 0},
		{"year not a number", "?ano=ontem", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodGet, "/api/v1/producao/scrape"+tt.query, "")
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus == http.StatusOK {
				rows := decodeRows(t, w)
				assert.Len(t, rows, tt.wantRows)
				for _, row := range rows {
					assert.Contains(t, row, "produto")
					assert.Contains(t, row, "quantidade_l")
					assert.Contains(t, row, "tipo")
					assert.Contains(t, row, "ano")
				}
			}
		})
	}

	assert.Equal(t, []int{2024}, sweeper.calls[0])
}

func TestScrapeNotFound(t *testing.T) {
	router := setupRouter(&fakeSweeper{catalog: catalog.Default()}, nil)

	w := do(t, router, http.MethodGet, "/api/v1/producao/scrape?ano=2021&ano=2020", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Nenhum dado encontrado para o(s) ano(s): 2020, 2021"}`, w.Body.String())

	w = do(t, router, http.MethodGet, "/api/v1/vinhos/scrape", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "unknown category")
}

func TestScrapeSweepErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"deadline", fmt.Errorf("sweep: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"invalid year", fmt.Errorf("%w: 1800", catalog.ErrInvalidYear), http.StatusBadRequest},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(&fakeSweeper{catalog: catalog.Default(), err: tt.err}, nil)
			w := do(t, router, http.MethodGet, "/api/v1/producao/scrape", "")
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestStoreEndpointsDisabled(t *testing.T) {
	router := setupRouter(&fakeSweeper{catalog: catalog.Default()}, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/producao"},
		{http.MethodPost, "/api/v1/producao/update"},
		{http.MethodGet, "/api/v1/producao/summary"},
		{http.MethodGet, "/api/v1/sweeps"},
	} {
		w := do(t, router, tc.method, tc.path, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, tc.path)
	}
}

func TestUpdate(t *testing.T) {
	sweeper := &fakeSweeper{catalog: catalog.Default(), records: producaoRecords()}
	store := &fakeStore{}
	router := setupRouter(sweeper, store)

	w := do(t, router, http.MethodPost, "/api/v1/producao/update", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, decodeRows(t, w), 4)
	assert.Equal(t, "sweep-1", w.Header().Get("X-Sweep-ID"))

	assert.Len(t, store.records, 4)
	require.Len(t, store.sweeps, 1)
	cat, _ := catalog.Default().Get("producao")
	assert.Equal(t, cat.AllYears(), sweeper.calls[0], "update sweeps the full range by default")

	w = do(t, router, http.MethodPost, "/api/v1/producao/update?ano=1999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueryRecords(t *testing.T) {
	store := &fakeStore{records: producaoRecords()}
	router := setupRouter(&fakeSweeper{catalog: catalog.Default()}, store)

	w := do(t, router, http.MethodGet, "/api/v1/producao?ano=2023", "")
	require.Equal(t, http.StatusOK, w.Code)
	rows := decodeRows(t, w)
	require.Len(t, rows, 2)
	assert.Equal(t, "2023", rows[0]["ano"])

	w = do(t, router, http.MethodGet, "/api/v1/producao?chave=rose", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/exportacao", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRecord(t *testing.T) {
	store := &fakeStore{}
	router := setupRouter(&fakeSweeper{catalog: catalog.Default()}, store)

	w := do(t, router, http.MethodPost, "/api/v1/exportacao",
		`{"paises":"  Chile ","quantidade_kg":10,"valor_dolar":null,"tipo":"espumantes","ano":2021}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t,
		`{"paises":"chile","quantidade_kg":10,"valor_dolar":null,"tipo":"espumantes","ano":"2021"}`,
		w.Body.String())
	require.Len(t, store.records, 1)
	assert.Nil(t, store.records[0].Value)

	tests := []struct {
		name string
		body string
	}{
		{"missing key", `{"quantidade_kg":1,"ano":2021}`},
		{"missing year", `{"paises":"chile"}`},
		{"year out of range", `{"paises":"chile","ano":"1850"}`},
		{"fractional year", `{"paises":"chile","ano":2021.5}`},
		{"measure not a number", `{"paises":"chile","quantidade_kg":"10","ano":2021}`},
		{"tipo not a string", `{"paises":"chile","tipo":3,"ano":2021}`},
		{"not json", `paises=chile`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/v1/exportacao", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSummary(t *testing.T) {
	store := &fakeStore{records: producaoRecords()}
	router := setupRouter(&fakeSweeper{catalog: catalog.Default()}, store)

	w := do(t, router, http.MethodGet, "/api/v1/producao/summary", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Measure string `json:"measure"`
		Years   []struct {
			Year    string  `json:"ano"`
			Count   int     `json:"count"`
			Missing int     `json:"missing"`
			Total   float64 `json:"total"`
		} `json:"years"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "quantidade_l", body.Measure)
	require.Len(t, body.Years, 2)
	assert.Equal(t, "2023", body.Years[0].Year)
	assert.InDelta(t, 140, body.Years[0].Total, 1e-9)
	assert.Equal(t, 1, body.Years[1].Missing)

	w = do(t, router, http.MethodGet, "/api/v1/producao/summary?medida=valor", "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "producao has no value column")

	w = do(t, router, http.MethodGet, "/api/v1/producao/summary?medida=peso", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSweeps(t *testing.T) {
	store := &fakeStore{sweeps: []sweep.Stats{
		{ID: "a", Category: "producao"},
		{ID: "b", Category: "exportacao"},
	}}
	router := setupRouter(&fakeSweeper{catalog: catalog.Default()}, store)

	w := do(t, router, http.MethodGet, "/api/v1/sweeps?category=exportacao", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Sweeps []sweep.Stats `json:"sweeps"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Sweeps, 1)
	assert.Equal(t, "b", body.Sweeps[0].ID)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/v1/sweeps?limit=0", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/v1/sweeps?category=vinhos", "").Code)
}

func TestCategoriesAndHealth(t *testing.T) {
	router := setupRouter(&fakeSweeper{catalog: catalog.Default()}, &fakeStore{})

	w := do(t, router, http.MethodGet, "/api/v1/categories", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Categories []catalog.Category `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Categories, 5)

	w = do(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"store":"ok"`)

	gin.SetMode(gin.TestMode)
	router = gin.New()
	h := NewHandlers(&fakeSweeper{catalog: catalog.Default()}, nil, nil)
	h.SetUpstreamStatus(func() string { return "open" })
	h.Register(router, nil)
	w = do(t, router, http.MethodGet, "/health", "")
	assert.Contains(t, w.Body.String(), `"upstream":"open"`)
	assert.Contains(t, w.Body.String(), `"store":"disabled"`)

	router = setupRouter(&fakeSweeper{catalog: catalog.Default()}, &fakeStore{err: fmt.Errorf("down")})
	w = do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
