// Package postgres implements the store using pgx/v5 with raw SQL.
// Features: INSERT … ON CONFLICT key claims, per-prefix advisory locks
// for artifact stamps, embedded SQL migrations, and a read-only
// directory over the employee and salary tables.
package postgres
