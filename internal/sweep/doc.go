/*
Package sweep aggregates report pages into one normalized table.

A sweep covers one category over a set of years. Every (year, variant)
pair is one page, fetched and extracted by a bounded pool of workers that
share a single scraper client. Workers only return their page result; the
aggregating goroutine merges results, sorts them by year and variant
catalog order, and owns the table until it is returned.

Failures stay local to a page: transport errors are retried with
exponential backoff and then skipped, pages without data table are empty,
malformed and all-missing rows are counted and dropped. Only an empty
table tells the caller that nothing was found.

	agg := sweep.New(client, catalog.Default(), sweep.Options{BaseURL: base}, logger, metrics)
	table, err := agg.Aggregate(ctx, "exportacao", []int{2021, 2022})
*/
package sweep
