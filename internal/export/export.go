package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/GriffinCanCode/vitibrasil/internal/sweep"
	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Formats
const (
	FormatNDJSON = "ndjson"
	FormatCSV    = "csv"
)

// Compressions
const (
	CompressionNone = "none"
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)

var ErrUnsupported = errors.New("unsupported export option")

// Options selects the file layout of an export.
type Options struct {
	Dir         string
	Format      string
	Compression string
}

// Validate checks format and compression.
func (o Options) Validate() error {
	switch o.Format {
	case FormatNDJSON, FormatCSV:
	default:
		return fmt.Errorf("%w: format %q", ErrUnsupported, o.Format)
	}
	switch o.Compression {
	case "", CompressionNone, CompressionGzip, CompressionZstd:
	default:
		return fmt.Errorf("%w: compression %q", ErrUnsupported, o.Compression)
	}
	if o.Dir == "" {
		return errors.New("export dir is required")
	}
	return nil
}

// Path returns the file a category is exported to.
func (o Options) Path(category string) string {
	name := category + "." + o.Format
	switch o.Compression {
	case CompressionGzip:
		name += ".gz"
	case CompressionZstd:
		name += ".zst"
	}
	return filepath.Join(o.Dir, name)
}

// WriteTable replaces the export file of the table's category. The file is
// written to a temporary name and renamed over the previous export, so
// readers see either the old or the new table.
func WriteTable(table *sweep.Table, opts Options) (path string, err error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path = opts.Path(table.Category.Name)
	tmp, err := os.CreateTemp(opts.Dir, "."+table.Category.Name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Encode(tmp, table, opts.Format, opts.Compression); err != nil {
		return "", err
	}
	if err = tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync export: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("close export: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("replace export: %w", err)
	}
	return path, nil
}

// Encode writes table to w in format, compressed as requested.
func Encode(w io.Writer, table *sweep.Table, format, compression string) error {
	var (
		out   io.Writer = w
		flush func() error
	)
	switch compression {
	case "", CompressionNone:
	case CompressionGzip:
		gz := gzip.NewWriter(w)
		out, flush = gz, gz.Close
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("zstd writer: %w", err)
		}
		out, flush = zw, zw.Close
	default:
		return fmt.Errorf("%w: compression %q", ErrUnsupported, compression)
	}

	var err error
	switch format {
	case FormatNDJSON:
		err = writeNDJSON(out, table)
	case FormatCSV:
		err = writeCSV(out, table)
	default:
		err = fmt.Errorf("%w: format %q", ErrUnsupported, format)
	}
	if err != nil {
		return err
	}
	if flush != nil {
		if err := flush(); err != nil {
			return fmt.Errorf("flush %s: %w", compression, err)
		}
	}
	return nil
}

func writeNDJSON(w io.Writer, table *sweep.Table) error {
	enc := sonic.ConfigStd.NewEncoder(w)
	for i := range table.Records {
		if err := enc.Encode(table.Records[i].Row(table.Category)); err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return nil
}

func writeCSV(w io.Writer, table *sweep.Table) error {
	schema := table.Category.Schema()
	cw := csv.NewWriter(w)
	if err := cw.Write(schema); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	line := make([]string, len(schema))
	for i := range table.Records {
		for j, name := range schema {
			line[j] = csvValue(table.Records[i].Field(table.Category, name))
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write csv record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
