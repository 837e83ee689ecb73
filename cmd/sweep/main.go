package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/vitibrasil/internal/catalog"
	"github.com/GriffinCanCode/vitibrasil/internal/export"
	"github.com/GriffinCanCode/vitibrasil/internal/infrastructure/config"
	"github.com/GriffinCanCode/vitibrasil/internal/infrastructure/logging"
	"github.com/GriffinCanCode/vitibrasil/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/vitibrasil/internal/infrastructure/server"
	"github.com/GriffinCanCode/vitibrasil/internal/store"
	"github.com/GriffinCanCode/vitibrasil/internal/sweep"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "sweep: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "sweep",
		Usage:   "Scrape report categories and replace the bulk exports",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Value: ".env",
				Usage: "Optional dotenv file",
			},
			&cli.StringFlag{
				Name:    "category",
				Usage:   "Category to sweep (default: all)",
				EnvVars: []string{"SWEEP_CATEGORY"},
			},
			&cli.StringFlag{
				Name:    "years",
				Usage:   "Years: 2020, 2018-2022 or 2019,2021 (default: full range)",
				EnvVars: []string{"SWEEP_YEARS"},
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Export directory (overrides EXPORT_DIR)",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "ndjson or csv (overrides EXPORT_FORMAT)",
			},
			&cli.StringFlag{
				Name:  "compression",
				Usage: "none, gzip or zstd (overrides EXPORT_COMPRESSION)",
			},
			&cli.BoolFlag{
				Name:  "store",
				Usage: "Also upsert into the configured database",
			},
			&cli.BoolFlag{
				Name:  "warehouse",
				Usage: "Also reload each category into ClickHouse (needs CLICKHOUSE_ADDR)",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Value:   2 * time.Hour,
				Usage:   "Overall deadline",
				EnvVars: []string{"SWEEP_TIMEOUT"},
			},
		},
		Action: sweepAction,
		Commands: []*cli.Command{
			{
				Name:   "categories",
				Usage:  "List the categories and their year ranges",
				Action: listCategories,
			},
		},
	}
}

type runOptions struct {
	Category  string
	Years     string
	Persist   bool
	Warehouse bool
}

func sweepAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("env"))
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if v := c.String("out"); v != "" {
		cfg.Export.Dir = v
	}
	if v := c.String("format"); v != "" {
		cfg.Export.Format = v
	}
	if v := c.String("compression"); v != "" {
		cfg.Export.Compression = v
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, c.Duration("timeout"))
	defer cancelTimeout()

	opts := runOptions{
		Category:  c.String("category"),
		Years:     c.String("years"),
		Persist:   c.Bool("store"),
		Warehouse: c.Bool("warehouse"),
	}
	if err := run(ctx, cfg, logger.Logger, opts); err != nil {
		logger.Error("sweep failed", zap.Error(err))
		return err
	}
	return nil
}

func listCategories(c *cli.Context) error {
	cat := catalog.Default()
	for _, name := range cat.Names() {
		category, _ := cat.Get(name)
		years := category.AllYears()
		fmt.Fprintf(c.App.Writer, "%-16s %d-%d\n", name, years[0], years[len(years)-1])
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, ro runOptions) error {
	opts := export.Options{
		Dir:         cfg.Export.Dir,
		Format:      cfg.Export.Format,
		Compression: cfg.Export.Compression,
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	aggregator, _, err := server.NewAggregator(cfg.Scraper, logger, monitoring.NewMetrics())
	if err != nil {
		return err
	}

	var db *store.Store
	if ro.Persist {
		cfg.Database.Enabled = true
		if db, err = server.OpenStore(ctx, cfg.Database, logger); err != nil {
			return err
		}
		defer db.Close()
	}

	var warehouse *export.ClickHouseSink
	if ro.Warehouse {
		if warehouse, err = export.OpenClickHouse(ctx, warehouseConfig(cfg.Warehouse)); err != nil {
			return err
		}
		defer warehouse.Close()
	}

	categories := aggregator.Catalog().Names()
	if ro.Category != "" {
		if _, err := aggregator.Catalog().Get(ro.Category); err != nil {
			return err
		}
		categories = []string{ro.Category}
	}

	var failed []string
	for _, name := range categories {
		cat, _ := aggregator.Catalog().Get(name)
		ys, err := parseYears(ro.Years, cat)
		if err != nil {
			return err
		}

		table, err := aggregator.Aggregate(ctx, name, ys)
		if err != nil {
			// an interrupted sweep is never exported over a complete one
			return fmt.Errorf("%s: %w", name, err)
		}
		if table.Empty() {
			logger.Warn("nothing collected, keeping previous export", zap.String("category", name))
			failed = append(failed, name)
			continue
		}

		path, err := export.WriteTable(table, opts)
		if err != nil {
			return err
		}
		logger.Info("exported", zap.String("category", name), zap.String("path", path), zap.Int("records", len(table.Records)))

		if db != nil {
			if err := persistTable(ctx, db, table); err != nil {
				return err
			}
		}
		if warehouse != nil {
			n, err := warehouse.ReplaceTable(ctx, table)
			if err != nil {
				return fmt.Errorf("warehouse %s: %w", name, err)
			}
			logger.Info("warehouse reloaded", zap.String("category", name), zap.Int("rows", n))
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("no data collected for: %s", strings.Join(failed, ", "))
	}
	return nil
}

func warehouseConfig(cfg config.WarehouseConfig) export.ClickHouseConfig {
	return export.ClickHouseConfig{
		Addr:     cfg.Addr,
		Database: cfg.Database,
		Username: cfg.Username,
		Password: cfg.Password,
		Table:    cfg.Table,
	}
}

func persistTable(ctx context.Context, db *store.Store, table *sweep.Table) error {
	if _, err := db.UpsertRecords(ctx, table.Records); err != nil {
		return fmt.Errorf("store %s: %w", table.Category.Name, err)
	}
	if err := db.RecordSweep(ctx, table.Stats); err != nil {
		return fmt.Errorf("record sweep %s: %w", table.Stats.ID, err)
	}
	return nil
}

// parseYears accepts "", "2020", "2018-2022" and "2019,2021". Empty means
// the category's full range.
func parseYears(spec string, cat *catalog.Category) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return cat.AllYears(), nil
	}

	var years []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if from, to, ok := strings.Cut(part, "-"); ok {
			lo, err1 := strconv.Atoi(strings.TrimSpace(from))
			hi, err2 := strconv.Atoi(strings.TrimSpace(to))
			if err := errors.Join(err1, err2); err != nil || lo > hi {
				return nil, fmt.Errorf("invalid year range %q", part)
			}
			for y := lo; y <= hi; y++ {
				years = append(years, y)
			}
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", part)
		}
		years = append(years, y)
	}
	return cat.ValidateYears(years)
}
