package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var headerSamples = []struct {
	in   string
	want string
}{
	{"Produto", "produto"},
	{"Quantidade (L.)", "quantidade_l"},
	{"Quantidade (Kg)", "quantidade_kg"},
	{"Países", "paises"},
	{"Cultivar", "cultivar"},
	{"  Valor   (US$) ", "valor_us$"},
	{"VINHO DE MESA", "vinho_de_mesa"},
	{"VINHO FINO DE MESA (VINIFERA)", "vinho_fino_de_mesa_vinifera"},
	{"Suco de uva concentrado", "suco_de_uva_concentrado"},
	{"Comercialização", "comercializacao"},
	{"Açúcar\tmascavo", "acucar_mascavo"},
	{"", ""},
}

func TestNormalizeHeader(t *testing.T) {
	for _, tt := range headerSamples {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHeader(tt.in))
		})
	}
}

func TestNormalizeHeaderIsIdempotent(t *testing.T) {
	extra := []string{"a ( b", "Á.É.Í", "x__y", "Tinto (seco)", "İstanbul", "quantidade_l"}
	for _, tt := range headerSamples {
		extra = append(extra, tt.in)
	}
	for _, s := range extra {
		once := NormalizeHeader(s)
		assert.Equal(t, once, NormalizeHeader(once), s)
	}
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "vinho_fino_de_mesa_(vinifera)", NormalizeLabel("VINHO FINO DE MESA (VINIFERA)"))
	assert.Equal(t, "vinho_de_mesa", NormalizeLabel("  Vinho de  Mesa "))
	assert.Equal(t, "derivados_(suco_de_uva)", NormalizeLabel("Derivados (Suco de Uva)"))
	assert.Equal(t, "espumantes", NormalizeLabel("Espumântes"))
}

func TestNormalizeColumns(t *testing.T) {
	got := NormalizeColumns([]string{"Países", "Quantidade (Kg)", "Valor (US$)"})
	assert.Equal(t, []string{"paises", "quantidade_kg", CurrencyColumn}, got)

	got = NormalizeColumns([]string{"Países", "Valor US$"})
	assert.Equal(t, []string{"paises", CurrencyColumn}, got)

	got = NormalizeColumns([]string{"Produto", "Valor"})
	assert.Equal(t, []string{"produto", "valor"}, got)
}

func TestNormalizeEntity(t *testing.T) {
	assert.Equal(t, "vinho de mesa", NormalizeEntity("  VINHO   DE MESA "))
	assert.Equal(t, "áfrica do sul", NormalizeEntity("África do Sul"))
}
