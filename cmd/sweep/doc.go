// Command sweep scrapes every category (or one) and replaces the bulk
// export files, optionally upserting into the database and reloading the
// ClickHouse warehouse as well.
//
// Usage:
//
//	./sweep --years 2018-2024 --format csv --compression zstd
//	./sweep --category exportacao --store --warehouse
//	./sweep categories
package main
