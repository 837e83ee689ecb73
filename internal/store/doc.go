// Package store persists normalized records and sweep history in SQLite
// (modernc.org/sqlite, no cgo) or PostgreSQL (pgx through database/sql).
//
// The schema is managed by golang-migrate from migrations embedded per
// driver. Records are unique on (category, entity, tipo, caracteristica,
// ano) and are upserted; absent labels are stored as empty strings so the
// unique key holds on both backends.
package store
