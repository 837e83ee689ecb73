package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/GriffinCanCode/vitibrasil/internal/scraper"
	"github.com/GriffinCanCode/vitibrasil/internal/sweep"
)

const upsertRecord = `
INSERT INTO records (category, entity, quantity, value, tipo, caracteristica, ano, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (category, entity, tipo, caracteristica, ano) DO UPDATE SET
    quantity = excluded.quantity,
    value = excluded.value,
    updated_at_ms = excluded.updated_at_ms`

// UpsertRecords stores records in one transaction, all or none. A record
// with the same category, entity, tipo, caracteristica and year replaces the
// stored one.
func (s *Store) UpsertRecords(ctx context.Context, records []sweep.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.rebind(upsertRecord))
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for i := range records {
		r := &records[i]
		if _, err := stmt.ExecContext(ctx,
			r.Category,
			scraper.NormalizeEntity(r.Entity),
			nullFloat(r.Quantity),
			nullFloat(r.Value),
			deref(r.Tipo),
			deref(r.Caracteristica),
			r.Year,
			now,
		); err != nil {
			return 0, fmt.Errorf("upsert %s/%s/%s: %w", r.Category, r.Entity, r.Year, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(records), nil
}

// QueryRecords returns the stored records of category matching f, ordered
// by year and insertion.
func (s *Store) QueryRecords(ctx context.Context, category string, f sweep.Filter) ([]sweep.Record, error) {
	query, args := buildRecordQuery(category, f.Normalize())
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []sweep.Record
	for rows.Next() {
		var (
			r              sweep.Record
			quantity       sql.NullFloat64
			value          sql.NullFloat64
			tipo, caracter string
		)
		if err := rows.Scan(&r.Category, &r.Entity, &quantity, &value, &tipo, &caracter, &r.Year); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Quantity = floatPtr(quantity)
		r.Value = floatPtr(value)
		r.Tipo = strPtr(tipo)
		r.Caracteristica = strPtr(caracter)
		out = append(out, r)
	}
	return out, rows.Err()
}

func buildRecordQuery(category string, f sweep.Filter) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT category, entity, quantity, value, tipo, caracteristica, ano FROM records WHERE category = ?")
	args := []any{category}

	in := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		fmt.Fprintf(&b, " AND %s IN (%s)", column, strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", "))
		for _, v := range values {
			args = append(args, v)
		}
	}
	bound := func(expr string, v *float64) {
		if v == nil {
			return
		}
		fmt.Fprintf(&b, " AND %s ?", expr)
		args = append(args, *v)
	}

	in("ano", f.Years)
	in("entity", f.Entities)
	in("lower(tipo)", f.Tipos)
	bound("quantity >=", f.MinQuantity)
	bound("quantity <=", f.MaxQuantity)
	bound("value >=", f.MinValue)
	bound("value <=", f.MaxValue)

	b.WriteString(" ORDER BY ano, id")
	return b.String(), args
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
