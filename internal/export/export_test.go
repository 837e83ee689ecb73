package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/vitibrasil/internal/catalog"
	"github.com/GriffinCanCode/vitibrasil/internal/sweep"
	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(f float64) *float64 { return &f }
func sp(s string) *string   { return &s }

func sampleTable(t *testing.T) *sweep.Table {
	t.Helper()
	cat, err := catalog.Default().Get("exportacao")
	require.NoError(t, err)
	return &sweep.Table{
		Category: cat,
		Records: []sweep.Record{
			{Category: "exportacao", Entity: "chile", Quantity: fp(1000), Value: fp(2500.5), Tipo: sp("espumantes"), Year: "2021"},
			{Category: "exportacao", Entity: "peru, lima", Quantity: fp(7), Tipo: sp("espumantes"), Year: "2021"},
		},
	}
}

func readNDJSON(t *testing.T, r io.Reader) []map[string]any {
	t.Helper()
	var rows []map[string]any
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var row map[string]any
		require.NoError(t, sonic.Unmarshal(scanner.Bytes(), &row))
		rows = append(rows, row)
	}
	require.NoError(t, scanner.Err())
	return rows
}

func TestEncodeNDJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleTable(t), FormatNDJSON, CompressionNone))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.JSONEq(t,
		`{"paises":"chile","quantidade_kg":1000,"valor_dolar":2500.5,"tipo":"espumantes","ano":"2021"}`,
		string(lines[0]))
	assert.JSONEq(t,
		`{"paises":"peru, lima","quantidade_kg":7,"valor_dolar":null,"tipo":"espumantes","ano":"2021"}`,
		string(lines[1]))
}

func TestEncodeCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleTable(t), FormatCSV, CompressionNone))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"paises", "quantidade_kg", "valor_dolar", "tipo", "ano"},
		{"chile", "1000", "2500.5", "espumantes", "2021"},
		{"peru, lima", "7", "", "espumantes", "2021"},
	}, rows)
}

func TestEncodeCompressed(t *testing.T) {
	t.Run("gzip", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, sampleTable(t), FormatNDJSON, CompressionGzip))

		zr, err := gzip.NewReader(&buf)
		require.NoError(t, err)
		rows := readNDJSON(t, zr)
		require.Len(t, rows, 2)
		assert.Equal(t, "chile", rows[0]["paises"])
	})

	t.Run("zstd", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, sampleTable(t), FormatNDJSON, CompressionZstd))

		zr, err := zstd.NewReader(&buf)
		require.NoError(t, err)
		defer zr.Close()
		rows := readNDJSON(t, zr)
		require.Len(t, rows, 2)
		assert.Equal(t, "peru, lima", rows[1]["paises"])
	})
}

func TestEncodeRejectsUnknownOptions(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Encode(&buf, sampleTable(t), "parquet", CompressionNone), ErrUnsupported)
	assert.ErrorIs(t, Encode(&buf, sampleTable(t), FormatCSV, "brotli"), ErrUnsupported)
}

func TestOptionsPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "producao.ndjson.gz"), Options{Dir: "out", Format: FormatNDJSON, Compression: CompressionGzip}.Path("producao"))
	assert.Equal(t, filepath.Join("out", "producao.csv.zst"), Options{Dir: "out", Format: FormatCSV, Compression: CompressionZstd}.Path("producao"))
	assert.Equal(t, filepath.Join("out", "producao.csv"), Options{Dir: "out", Format: FormatCSV, Compression: CompressionNone}.Path("producao"))
}

func TestWriteTableReplacesPreviousExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "export")
	opts := Options{Dir: dir, Format: FormatNDJSON, Compression: CompressionNone}

	table := sampleTable(t)
	path, err := WriteTable(table, opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "exportacao.ndjson"), path)

	table.Records = table.Records[:1]
	_, err = WriteTable(table, opts)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, readNDJSON(t, f), 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files are left behind")
}

func TestWriteTableValidates(t *testing.T) {
	_, err := WriteTable(sampleTable(t), Options{Dir: t.TempDir(), Format: "xml"})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = WriteTable(sampleTable(t), Options{Format: FormatCSV})
	assert.Error(t, err)
}
