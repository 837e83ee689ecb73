package scraper

import (
	"maps"
	"strings"

	"github.com/shopspring/decimal"
)

// MissingValue is the placeholder the report uses for "no data".
const MissingValue = "-"

// CleanRows strips thousands separators from the numeric columns and
// removes missing or non-numeric values from the row. Rows left without any
// numeric value are subtotal artifacts or blank placeholders and are
// dropped. Input rows are not modified.
func CleanRows(rows []ClassifiedRow, numeric []string) (kept []ClassifiedRow, dropped int) {
	kept = make([]ClassifiedRow, 0, len(rows))
	for _, row := range rows {
		values := maps.Clone(row.Values)
		present := 0
		for _, col := range numeric {
			v, ok := cleanNumber(values[col])
			if !ok {
				delete(values, col)
				continue
			}
			values[col] = v
			present++
		}
		if present == 0 {
			dropped++
			continue
		}
		row.Values = values
		kept = append(kept, row)
	}
	return kept, dropped
}

func cleanNumber(raw string) (string, bool) {
	v := strings.ReplaceAll(strings.TrimSpace(raw), ".", "")
	if v == "" || v == MissingValue {
		return "", false
	}
	if _, ok := parseNumber(v); !ok {
		return "", false
	}
	return v, true
}

func parseNumber(v string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.Replace(v, ",", ".", 1))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseDecimal is ParseMeasure without the float conversion.
func ParseDecimal(raw string) (decimal.Decimal, bool) {
	v, ok := cleanNumber(raw)
	if !ok {
		return decimal.Zero, false
	}
	return parseNumber(v)
}

// ParseMeasure converts a report number to a float. Thousands separators
// are periods and the decimal separator is a comma. Missing or
// non-numeric input yields nil.
func ParseMeasure(raw string) *float64 {
	d, ok := ParseDecimal(raw)
	if !ok {
		return nil
	}
	f, _ := d.Float64()
	return &f
}
