package scraper

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CurrencyColumn is the stable name of the US dollar value column.
const CurrencyColumn = "valor_dolar"

var stripPunct = strings.NewReplacer("(", "", ")", "", ".", "")

// NormalizeHeader turns header text into a column token: diacritics
// stripped, lowercased, whitespace runs joined by "_", and parentheses
// and periods removed. It is idempotent.
func NormalizeHeader(text string) string {
	return stripPunct.Replace(NormalizeLabel(text))
}

// NormalizeLabel turns a group row label into a tipo/caracteristica value:
// diacritics stripped, lowercased, whitespace runs joined by "_".
// Punctuation is kept, so "Vinho Fino de Mesa (Vinífera)" becomes
// "vinho_fino_de_mesa_(vinifera)".
func NormalizeLabel(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), "_")
}

// NormalizeColumns normalizes every header and applies the table level
// renames. The dollar column label differs between report pages
// ("Valor (US$)", "Valor US$"), so any valor_* column with a "$" becomes
// CurrencyColumn.
func NormalizeColumns(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		token := NormalizeHeader(c)
		if strings.HasPrefix(token, "valor") && strings.Contains(token, "$") {
			token = CurrencyColumn
		}
		out[i] = token
	}
	return out
}

// NormalizeEntity canonicalizes an entity label: trimmed, single spaced,
// lowercased. Diacritics are kept.
func NormalizeEntity(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}
