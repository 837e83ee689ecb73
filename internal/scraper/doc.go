// Package scraper extracts the data table of a vitibrasil report page.
//
// The pipeline for one page:
//   - Client.Fetch: GET with browser headers, pacing and a circuit breaker
//   - Document.Parse: charset detection (header, chardet) and HTML parsing
//   - Locate: finds the tb_dados table by XPath, splits header and body
//   - NormalizeColumns: canonical column tokens
//   - Classify: resolves the one-level group of each row
//   - CleanRows: numeric cleanup and the all-missing drop
//
// Extract chains the last four steps.
//
// Built on:
//   - resty and retryablehttp's pooled transport for fetching
//   - htmlquery (XPath) and goquery (traversal) over x/net/html
//   - chardet and x/net/html/charset for decoding
//   - x/text for diacritic folding
package scraper
