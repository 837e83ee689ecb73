// Package catalog holds the per-category configuration of the report site:
// option codes, variants, the positional domain schema of each table, the
// numeric columns and the published year range.
//
// The table is data, not code. It ships as an embedded YAML document and is
// validated once at startup, so a column order change on the site is fixed
// by editing catalog.yaml.
package catalog
