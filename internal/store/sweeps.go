package store

import (
	"context"
	"fmt"
	"time"

	"github.com/GriffinCanCode/vitibrasil/internal/sweep"
	"github.com/bytedance/sonic"
)

// RecordSweep stores the statistics of a finished sweep.
func (s *Store) RecordSweep(ctx context.Context, st sweep.Stats) error {
	years, err := sonic.MarshalString(st.Years)
	if err != nil {
		return fmt.Errorf("encode years: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
INSERT INTO sweeps (id, category, years, pages, empty_pages, failed_pages, records, dropped_rows, malformed_rows, started_at_ms, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		st.ID, st.Category, years, st.Pages, st.EmptyPages, st.FailedPages,
		st.Records, st.Dropped, st.Malformed, st.StartedAt.UnixMilli(), st.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert sweep %s: %w", st.ID, err)
	}
	return nil
}

// ListSweeps returns the most recent sweeps first. category may be empty.
func (s *Store) ListSweeps(ctx context.Context, category string, limit int) ([]sweep.Stats, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `SELECT id, category, years, pages, empty_pages, failed_pages, records, dropped_rows, malformed_rows, started_at_ms, duration_ms FROM sweeps`
	args := []any{}
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY started_at_ms DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query sweeps: %w", err)
	}
	defer rows.Close()

	var out []sweep.Stats
	for rows.Next() {
		var (
			st                sweep.Stats
			years             string
			startedMs, tookMs int64
		)
		if err := rows.Scan(&st.ID, &st.Category, &years, &st.Pages, &st.EmptyPages, &st.FailedPages,
			&st.Records, &st.Dropped, &st.Malformed, &startedMs, &tookMs); err != nil {
			return nil, fmt.Errorf("scan sweep: %w", err)
		}
		if err := sonic.UnmarshalString(years, &st.Years); err != nil {
			return nil, fmt.Errorf("decode years of sweep %s: %w", st.ID, err)
		}
		st.StartedAt = time.UnixMilli(startedMs).UTC()
		st.Duration = time.Duration(tookMs) * time.Millisecond
		out = append(out, st)
	}
	return out, rows.Err()
}
