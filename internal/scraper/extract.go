package scraper

import (
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Page is the cleaned content of one report page.
type Page struct {
	Columns   []string
	Rows      []ClassifiedRow
	Malformed int
	Orphans   int
	// Dropped counts all-missing rows and rows with an unknown marker.
	Dropped int
}

// Extract runs locate, header normalization, classification and numeric
// cleaning on a parsed page. measures is the number of numeric columns
// following the key column. ok is false for a page without data table.
func Extract(root *html.Node, measures int, policy GroupPolicy, logger *zap.Logger) (page *Page, ok bool) {
	table, ok := Locate(root)
	if !ok {
		return nil, false
	}
	table.Columns = NormalizeColumns(table.Columns)

	classified := Classify(table, policy, logger)

	end := min(1+measures, len(table.Columns))
	numeric := table.Columns[min(1, end):end]
	rows, dropped := CleanRows(classified.Rows, numeric)

	return &Page{
		Columns:   table.Columns,
		Rows:      rows,
		Malformed: classified.Malformed,
		Orphans:   classified.Orphans,
		Dropped:   dropped + classified.Skipped,
	}, true
}
