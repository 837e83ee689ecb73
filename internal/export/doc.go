// Package export writes sweep tables as bulk load files: newline delimited
// JSON (sonic) or CSV, optionally gzip or zstd compressed (klauspost).
//
// Each category has one file under the export directory. A new export
// replaces it atomically, which gives the loader truncate-and-reload
// semantics.
package export
