package store

import (
	"context"

	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/cache"
	"github.com/xraph/payroll/idempotency"
	"github.com/xraph/payroll/run"
)

// Store is the aggregate persistence interface.
// A single backend (postgres, sqlite, mongo, memory) implements all of them.
type Store interface {
	idempotency.Store
	cache.Store
	artifact.Store
	run.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}

// KeyStore is the subset served by key-value backends that hold the
// idempotency keys and the result cache but not the archive.
type KeyStore interface {
	idempotency.Store
	cache.Store

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close closes the connection.
	Close() error
}
