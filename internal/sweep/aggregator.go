package sweep

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/GriffinCanCode/vitibrasil/internal/catalog"
	"github.com/GriffinCanCode/vitibrasil/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/vitibrasil/internal/scraper"
	"github.com/GriffinCanCode/vitibrasil/internal/shared/id"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers = 4
	MaxWorkers     = 8
)

// Page outcomes
const (
	OutcomeData   = "data"
	OutcomeEmpty  = "empty"
	OutcomeFailed = "failed"
)

// Fetcher retrieves one report page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*scraper.Document, error)
}

// Options configures an Aggregator.
type Options struct {
	BaseURL      string
	Workers      int
	MaxRetries   int
	RetryMinWait time.Duration
	RetryMaxWait time.Duration
	Policy       scraper.GroupPolicy
}

// Aggregator runs sweeps: the scrape pipeline over every (year, variant)
// pair of a category, merged into one table.
type Aggregator struct {
	fetcher  Fetcher
	catalog  *catalog.Catalog
	opts     Options
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	observer Observer
}

// New creates an Aggregator. fetcher is shared by every worker.
func New(fetcher Fetcher, cat *catalog.Catalog, opts Options, logger *zap.Logger, metrics *monitoring.Metrics) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	opts.Workers = min(opts.Workers, MaxWorkers)
	if opts.RetryMinWait <= 0 {
		opts.RetryMinWait = time.Second
	}
	if opts.RetryMaxWait < opts.RetryMinWait {
		opts.RetryMaxWait = opts.RetryMinWait
	}
	if opts.Policy == "" {
		opts.Policy = scraper.GroupLookahead
	}
	return &Aggregator{
		fetcher:  fetcher,
		catalog:  cat,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		observer: noopObserver{},
	}
}

// SetObserver registers the receiver of progress events. Events are
// delivered from the sweeping goroutine, one at a time.
func (a *Aggregator) SetObserver(o Observer) {
	if o == nil {
		o = noopObserver{}
	}
	a.observer = o
}

// Catalog returns the category catalog the aggregator sweeps.
func (a *Aggregator) Catalog() *catalog.Catalog {
	return a.catalog
}

// job is one (year, variant) page of a sweep.
type job struct {
	year    int
	index   int
	variant catalog.Variant
}

// pageResult is what a worker hands back to the merging loop.
type pageResult struct {
	job       job
	outcome   string
	records   []Record
	dropped   int
	malformed int
	err       error
}

// Aggregate sweeps category over years. A sweep that collects nothing
// returns an empty table and no error. Per-page failures are logged and
// counted, never returned. If ctx ends mid-sweep the records merged so far
// are returned together with ctx.Err().
func (a *Aggregator) Aggregate(ctx context.Context, category string, years []int) (*Table, error) {
	cat, err := a.catalog.Get(category)
	if err != nil {
		return nil, err
	}
	if len(years) == 0 {
		years = []int{cat.LatestYear()}
	}
	years, err = cat.ValidateYears(years)
	if err != nil {
		return nil, err
	}

	table := &Table{
		Category: cat,
		Stats: Stats{
			ID:        id.NewSweepID(),
			Category:  cat.Name,
			Years:     years,
			StartedAt: time.Now().UTC(),
		},
	}
	logger := a.logger.With(zap.String("sweep", table.Stats.ID), zap.String("category", cat.Name))

	var jobs []job
	for _, year := range years {
		for i, v := range cat.SweepVariants() {
			jobs = append(jobs, job{year: year, index: i, variant: v})
		}
	}
	logger.Info("sweep started", zap.Ints("years", years), zap.Int("pages", len(jobs)))
	a.observer.OnEvent(Event{Type: EventStarted, SweepID: table.Stats.ID, Category: cat.Name, Total: len(jobs)})

	results := make(chan pageResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	go func() {
		for _, j := range jobs {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				results <- a.runPage(gctx, cat, j, logger)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	var pages []pageResult
	for res := range results {
		pages = append(pages, res)
		a.account(table, res)
		a.observer.OnEvent(Event{
			Type:     EventPage,
			SweepID:  table.Stats.ID,
			Category: cat.Name,
			Year:     res.job.year,
			Variant:  res.job.variant.Name,
			Outcome:  res.outcome,
			Records:  len(res.records),
			Done:     len(pages),
			Total:    len(jobs),
			Error:    errString(res.err),
		})
	}

	slices.SortFunc(pages, func(x, y pageResult) int {
		return cmp.Or(cmp.Compare(x.job.year, y.job.year), cmp.Compare(x.job.index, y.job.index))
	})
	for _, p := range pages {
		table.Records = append(table.Records, p.records...)
	}

	table.Stats.Records = len(table.Records)
	table.Stats.Duration = time.Since(table.Stats.StartedAt)
	a.metrics.RecordSweep(cat.Name, table.Stats.Records, table.Stats.Duration)

	done := Event{
		Type:     EventFinished,
		SweepID:  table.Stats.ID,
		Category: cat.Name,
		Records:  table.Stats.Records,
		Done:     len(pages),
		Total:    len(jobs),
	}
	if err := ctx.Err(); err != nil {
		logger.Warn("sweep interrupted", zap.Int("pages", len(pages)), zap.Int("records", table.Stats.Records), zap.Error(err))
		done.Error = err.Error()
		a.observer.OnEvent(done)
		return table, err
	}

	logger.Info("sweep finished",
		zap.Int("records", table.Stats.Records),
		zap.Int("empty_pages", table.Stats.EmptyPages),
		zap.Int("failed_pages", table.Stats.FailedPages),
		zap.Duration("took", table.Stats.Duration))
	a.observer.OnEvent(done)
	return table, nil
}

func (a *Aggregator) account(table *Table, res pageResult) {
	table.Stats.Pages++
	table.Stats.Dropped += res.dropped
	table.Stats.Malformed += res.malformed
	switch res.outcome {
	case OutcomeEmpty:
		table.Stats.EmptyPages++
	case OutcomeFailed:
		table.Stats.FailedPages++
	}
	a.metrics.RecordPage(table.Category.Name, res.outcome)
	a.metrics.RecordDroppedRows("all_missing", res.dropped)
	a.metrics.RecordDroppedRows("malformed", res.malformed)
}

func (a *Aggregator) runPage(ctx context.Context, cat *catalog.Category, j job, logger *zap.Logger) pageResult {
	res := pageResult{job: j}
	logger = logger.With(zap.Int("year", j.year), zap.String("variant", j.variant.Name))

	url, err := scraper.ReportRequest{
		BaseURL:   a.opts.BaseURL,
		Option:    cat.Option,
		SubOption: j.variant.SubOption,
		Year:      j.year,
	}.URL()
	if err != nil {
		res.outcome, res.err = OutcomeFailed, err
		return res
	}

	doc, err := a.fetch(ctx, url, logger)
	if err != nil {
		logger.Warn("skipping page", zap.String("url", url), zap.Error(err))
		res.outcome, res.err = OutcomeFailed, err
		return res
	}

	root, err := doc.Parse()
	if err != nil {
		logger.Warn("skipping unparsable page", zap.String("url", url), zap.Error(err))
		res.outcome, res.err = OutcomeFailed, err
		return res
	}

	page, ok := scraper.Extract(root, len(cat.Columns)-1, a.opts.Policy, logger)
	if !ok || len(page.Rows) == 0 {
		logger.Info("no data on page", zap.String("url", url))
		res.outcome = OutcomeEmpty
		if page != nil {
			res.dropped, res.malformed = page.Dropped, page.Malformed
		}
		return res
	}

	res.outcome = OutcomeData
	res.dropped, res.malformed = page.Dropped, page.Malformed
	res.records = buildRecords(cat, j, page, logger)
	return res
}

// fetch retries transport failures and retryable statuses with
// retryablehttp's exponential backoff.
func (a *Aggregator) fetch(ctx context.Context, url string, logger *zap.Logger) (*scraper.Document, error) {
	for attempt := 0; ; attempt++ {
		doc, err := a.fetcher.Fetch(ctx, url)
		if err == nil {
			return doc, nil
		}

		var fe *scraper.FetchError
		if attempt >= a.opts.MaxRetries || ctx.Err() != nil || (errors.As(err, &fe) && !fe.Retryable()) {
			return nil, err
		}

		wait := retryablehttp.DefaultBackoff(a.opts.RetryMinWait, a.opts.RetryMaxWait, attempt, nil)
		logger.Debug("retrying fetch", zap.Int("attempt", attempt+1), zap.Duration("wait", wait), zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-timer.C:
		}
	}
}

// buildRecords maps page columns onto the category schema by position and
// attaches the constant fields of the page.
func buildRecords(cat *catalog.Category, j job, page *scraper.Page, logger *zap.Logger) []Record {
	if len(page.Columns) != len(cat.Columns) {
		logger.Warn("column count differs from catalog",
			zap.Strings("page", page.Columns),
			zap.Int("catalog", len(cat.Columns)))
	}

	year := fmt.Sprintf("%04d", j.year)
	records := make([]Record, 0, len(page.Rows))
	for _, row := range page.Rows {
		r := Record{
			Category: cat.Name,
			Entity:   scraper.NormalizeEntity(row.Key),
			Year:     year,
		}

		for i := 1; i < len(cat.Columns) && i < len(page.Columns); i++ {
			raw, ok := row.Values[page.Columns[i]]
			if !ok {
				continue
			}
			switch cat.Columns[i].Role {
			case catalog.RoleQuantity:
				r.Quantity = scraper.ParseMeasure(raw)
			case catalog.RoleValue:
				r.Value = scraper.ParseMeasure(raw)
			}
		}

		if j.variant.Name != "" {
			r.Tipo = ptr(j.variant.Name)
		}
		switch cat.GroupLabel {
		case catalog.GroupToTipo:
			if r.Tipo == nil && row.Group != nil {
				r.Tipo = ptr(*row.Group)
			}
		case catalog.GroupToCaracteristica:
			if row.Group != nil {
				r.Caracteristica = ptr(*row.Group)
			}
		}
		records = append(records, r)
	}
	return records
}

func ptr[T any](v T) *T { return &v }

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
