package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const latin1Table = "<html><body><table class=\"tb_base tb_dados\"><thead><tr>" +
	"<th>Pa\xedses</th><th>Quantidade (Kg)</th></tr></thead><tbody>" +
	"<tr><td>Fran\xe7a</td><td>1.000</td></tr></tbody></table></body></html>"

func TestDocumentParseLatin1FromHeader(t *testing.T) {
	doc := &Document{
		URL:         "http://vitibrasil/index.php",
		ContentType: "text/html; charset=iso-8859-1",
		Body:        []byte(latin1Table),
	}

	root, err := doc.Parse()
	require.NoError(t, err)

	table, ok := Locate(root)
	require.True(t, ok)
	assert.Equal(t, "Países", table.Columns[0])
	assert.Equal(t, "França", table.Rows[0].Cells[0])
}

func TestDocumentParseUTF8WithoutHeader(t *testing.T) {
	body := `<html><body><p>Produção Exportação Importação Comercialização Processamento</p>
<table class="tb_base tb_dados"><thead><tr><th>Países</th><th>Valor (US$)</th></tr></thead>
<tbody><tr><td>Áustria</td><td>12</td></tr></tbody></table></body></html>`

	doc := &Document{Body: []byte(body)}
	root, err := doc.Parse()
	require.NoError(t, err)

	table, ok := Locate(root)
	require.True(t, ok)
	assert.Equal(t, "Áustria", table.Rows[0].Cells[0])
}

func TestDetectCharsetPrefersHeader(t *testing.T) {
	assert.Equal(t, "windows-1252", DetectCharset([]byte("abc"), "text/html; charset=ISO-8859-1"))
	assert.Equal(t, "utf-8", DetectCharset([]byte("\xef\xbb\xbfabc"), "text/html; charset=ISO-8859-1"))
}

func TestParseRejectsOversizedInput(t *testing.T) {
	big := strings.Repeat("a", MaxHTMLSize+1)

	_, err := ParseHTML(big)
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	_, err = (&Document{Body: []byte(big)}).Parse()
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}
