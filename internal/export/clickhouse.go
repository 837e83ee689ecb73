package export

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/shopspring/decimal"

	"github.com/GriffinCanCode/vitibrasil/internal/scraper"
	"github.com/GriffinCanCode/vitibrasil/internal/sweep"
)

// ClickHouseConfig addresses the analytical warehouse a sweep is loaded into.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Table    string
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the address and the table identifier.
func (c ClickHouseConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("clickhouse address is required")
	}
	if !tableName.MatchString(c.Table) {
		return fmt.Errorf("%w: clickhouse table %q", ErrUnsupported, c.Table)
	}
	return nil
}

// ClickHouseSink replaces per-category slices of a MergeTree table.
type ClickHouseSink struct {
	conn  clickhouse.Conn
	table string
}

// OpenClickHouse connects and creates the table when missing.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping ClickHouse: %w", err)
	}

	s := &ClickHouseSink{conn: conn, table: cfg.Table}
	if err := conn.Exec(ctx, createTableSQL(cfg.Table)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create %s: %w", cfg.Table, err)
	}
	return s, nil
}

func createTableSQL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
    category       LowCardinality(String),
    entity         String,
    tipo           LowCardinality(String),
    caracteristica LowCardinality(String),
    ano            UInt16,
    quantity       Nullable(Decimal(20, 4)),
    value          Nullable(Decimal(20, 4)),
    sweep_id       String,
    loaded_at      DateTime
) ENGINE = MergeTree
ORDER BY (category, ano, entity)`
}

// chRow is one warehouse row in column order.
type chRow struct {
	Category       string
	Entity         string
	Tipo           string
	Caracteristica string
	Ano            uint16
	Quantity       *decimal.Decimal
	Value          *decimal.Decimal
}

func warehouseRows(table *sweep.Table) ([]chRow, error) {
	rows := make([]chRow, 0, len(table.Records))
	for i := range table.Records {
		r := &table.Records[i]
		year, err := strconv.ParseUint(r.Year, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("record %d: invalid year %q", i, r.Year)
		}
		rows = append(rows, chRow{
			Category:       r.Category,
			Entity:         scraper.NormalizeEntity(r.Entity),
			Tipo:           deref(r.Tipo),
			Caracteristica: deref(r.Caracteristica),
			Ano:            uint16(year),
			Quantity:       toDecimal(r.Quantity),
			Value:          toDecimal(r.Value),
		})
	}
	return rows, nil
}

// ReplaceTable deletes the category's previous rows and loads table in one
// batch. An empty table is rejected so a failed sweep never wipes a
// complete load.
func (s *ClickHouseSink) ReplaceTable(ctx context.Context, table *sweep.Table) (int, error) {
	if table.Empty() {
		return 0, fmt.Errorf("refusing to replace %s with an empty table", table.Category.Name)
	}
	rows, err := warehouseRows(table)
	if err != nil {
		return 0, err
	}

	syncCtx := clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"mutations_sync": 2,
	}))
	if err := s.conn.Exec(syncCtx, `ALTER TABLE `+s.table+` DELETE WHERE category = ?`, table.Category.Name); err != nil {
		return 0, fmt.Errorf("delete %s: %w", table.Category.Name, err)
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO `+s.table+` (
		category, entity, tipo, caracteristica, ano, quantity, value, sweep_id, loaded_at
	)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}

	now := time.Now().UTC()
	for _, r := range rows {
		if err := batch.Append(
			r.Category, r.Entity, r.Tipo, r.Caracteristica, r.Ano,
			r.Quantity, r.Value, table.Stats.ID, now,
		); err != nil {
			return 0, fmt.Errorf("failed to append to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("send batch: %w", err)
	}
	return len(rows), nil
}

// Close closes the connection.
func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}

func toDecimal(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v).Round(4)
	return &d
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
