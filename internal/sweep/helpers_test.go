package sweep

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/vitibrasil/internal/catalog"
	"github.com/GriffinCanCode/vitibrasil/internal/scraper"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "http://viti.test/index.php"

const testCatalog = `
categories:
  - name: producao
    option: opt_02
    group_label: tipo
    years: {from: 2018, to: 2022}
    columns:
      - {name: produto, role: key}
      - {name: quantidade_l, role: quantity}
  - name: processamento
    option: opt_03
    group_label: caracteristica
    years: {from: 2018, to: 2022}
    columns:
      - {name: cultivar, role: key}
      - {name: quantidade_kg, role: quantity}
    variants:
      - {name: vinifera, sub_option: subopt_01}
  - name: exportacao
    option: opt_06
    years: {from: 2018, to: 2022}
    columns:
      - {name: paises, role: key}
      - {name: quantidade_kg, role: quantity}
      - {name: valor_dolar, role: value}
    variants:
      - {name: vinhos_de_mesa, sub_option: subopt_01}
      - {name: espumantes, sub_option: subopt_02}
`

func testCatalogFor(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)
	return c
}

// fakeFetcher serves pages keyed by "opcao/subopcao/ano".
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	failures map[string]int
	status   int
	calls    map[string]int
	delay    func(key string) time.Duration
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:    map[string]string{},
		failures: map[string]int{},
		calls:    map[string]int{},
		status:   503,
	}
}

func pageKey(option, subOption string, year int) string {
	return fmt.Sprintf("%s/%s/%d", option, subOption, year)
}

func (f *fakeFetcher) Fetch(ctx context.Context, raw string) (*scraper.Document, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	key := q.Get("opcao") + "/" + q.Get("subopcao") + "/" + q.Get("ano")

	if f.delay != nil {
		select {
		case <-time.After(f.delay(key)):
		case <-ctx.Done():
			return nil, &scraper.FetchError{URL: raw, Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	if f.failures[key] > 0 {
		f.failures[key]--
		return nil, &scraper.FetchError{URL: raw, Status: f.status}
	}
	page, ok := f.pages[key]
	if !ok {
		return nil, &scraper.FetchError{URL: raw, Status: 404}
	}
	return &scraper.Document{URL: raw, ContentType: "text/html; charset=utf-8", Body: []byte(page)}, nil
}

func (f *fakeFetcher) callsFor(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

// tablePage renders a data table. Cells prefixed with "g:" or "s:" mark
// the row as group or sub-item.
func tablePage(header []string, rows ...[]string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="tb_base tb_dados"><thead><tr>`)
	for _, h := range header {
		fmt.Fprintf(&b, "<th>%s</th>", h)
	}
	b.WriteString("</tr></thead><tbody>")
	for _, row := range rows {
		class := ""
		first := row[0]
		switch {
		case strings.HasPrefix(first, "g:"):
			class, first = ` class="tb_item"`, first[2:]
		case strings.HasPrefix(first, "s:"):
			class, first = ` class="tb_subitem"`, first[2:]
		}
		fmt.Fprintf(&b, "<tr><td%s>%s</td>", class, first)
		for _, cell := range row[1:] {
			fmt.Fprintf(&b, "<td%s>%s</td>", class, cell)
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table></body></html>")
	return b.String()
}

const emptyPage = `<html><body><p>Sem dados</p></body></html>`

var exportHeader = []string{"Países", "Quantidade (Kg)", "Valor (US$)"}

func newTestAggregator(t *testing.T, f Fetcher, opts Options) *Aggregator {
	t.Helper()
	if opts.BaseURL == "" {
		opts.BaseURL = testBaseURL
	}
	if opts.RetryMinWait == 0 {
		opts.RetryMinWait = time.Millisecond
		opts.RetryMaxWait = 5 * time.Millisecond
	}
	return New(f, testCatalogFor(t), opts, nil, nil)
}

func fp(f float64) *float64 { return &f }
func sp(s string) *string   { return &s }
