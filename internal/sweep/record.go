package sweep

import (
	"strconv"
	"time"

	"github.com/GriffinCanCode/vitibrasil/internal/catalog"
)

// Record is one normalized row of a category table.
type Record struct {
	Category       string
	Entity         string
	Quantity       *float64
	Value          *float64
	Tipo           *string
	Caracteristica *string
	Year           string
}

// Field returns the value of a schema field of cat.
func (r *Record) Field(cat *catalog.Category, name string) any {
	switch name {
	case "tipo":
		return optional(r.Tipo)
	case "caracteristica":
		return optional(r.Caracteristica)
	case "ano":
		return r.Year
	}
	for _, col := range cat.Columns {
		if col.Name != name {
			continue
		}
		switch col.Role {
		case catalog.RoleKey:
			return r.Entity
		case catalog.RoleQuantity:
			return optional(r.Quantity)
		case catalog.RoleValue:
			return optional(r.Value)
		}
	}
	return nil
}

// Row renders the record with the category's domain field names.
func (r *Record) Row(cat *catalog.Category) map[string]any {
	schema := cat.Schema()
	row := make(map[string]any, len(schema))
	for _, name := range schema {
		row[name] = r.Field(cat, name)
	}
	return row
}

// YearInt returns the record year as a number.
func (r *Record) YearInt() int {
	y, _ := strconv.Atoi(r.Year)
	return y
}

func optional[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// Stats summarizes one sweep.
type Stats struct {
	ID          string        `json:"id"`
	Category    string        `json:"category"`
	Years       []int         `json:"years"`
	Pages       int           `json:"pages"`
	EmptyPages  int           `json:"empty_pages"`
	FailedPages int           `json:"failed_pages"`
	Records     int           `json:"records"`
	Dropped     int           `json:"dropped_rows"`
	Malformed   int           `json:"malformed_rows"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// Table is the normalized result of a sweep, ordered by year and then by
// variant catalog order.
type Table struct {
	Category *catalog.Category
	Records  []Record
	Stats    Stats
}

// Empty reports whether the sweep collected nothing.
func (t *Table) Empty() bool {
	return t == nil || len(t.Records) == 0
}

// Rows renders every record with the category's domain field names.
func (t *Table) Rows() []map[string]any {
	rows := make([]map[string]any, len(t.Records))
	for i := range t.Records {
		rows[i] = t.Records[i].Row(t.Category)
	}
	return rows
}

// Filter returns a table holding only the records f matches.
func (t *Table) Filter(f Filter) *Table {
	f = f.Normalize()
	out := &Table{Category: t.Category, Stats: t.Stats}
	for _, r := range t.Records {
		if f.Match(&r) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}
