package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/cache"
	"github.com/xraph/payroll/idempotency"
	"github.com/xraph/payroll/run"
)

// Collection name constants.
const (
	colKeys      = "payroll_keys"
	colResults   = "payroll_results"
	colArtifacts = "payroll_artifacts"
	colHeads     = "payroll_artifact_heads"
	colRuns      = "payroll_runs"
)

// Ensure Store implements all subsystem interfaces at compile time.
var (
	_ idempotency.Store = (*Store)(nil)
	_ cache.Store       = (*Store)(nil)
	_ artifact.Store    = (*Store)(nil)
	_ run.Store         = (*Store)(nil)
)

// Store is a MongoDB implementation of store.Store.
type Store struct {
	db     *mongod.Database
	owned  bool
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a store on db. The caller owns the client; Close does not
// disconnect it.
func New(db *mongod.Database, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to uri and returns a store on the named database. The
// store owns the client and disconnects it on Close.
func Open(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	client, err := mongod.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("payroll/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("payroll/mongo: ping: %w", err)
	}
	s := New(client.Database(database), opts...)
	s.owned = true
	return s, nil
}

// Database returns the underlying database handle.
func (s *Store) Database() *mongod.Database {
	return s.db
}

// Migrate creates indexes for all payroll collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("payroll/mongo: migrate %s indexes: %w", col, err)
		}
	}
	s.logger.Debug("mongo indexes ensured", slog.String("database", s.db.Name()))
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close disconnects the client when the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.db.Client().Disconnect(ctx)
}

func (s *Store) col(name string) *mongod.Collection {
	return s.db.Collection(name)
}

// ── helpers ──────────────────────────────────────────────────────

// isNoDocuments returns true when err indicates no MongoDB documents found.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// isDuplicateKey checks if a MongoDB error is a duplicate key violation.
func isDuplicateKey(err error) bool {
	return err != nil && mongod.IsDuplicateKeyError(err)
}

// migrationIndexes returns the index definitions for all payroll collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colKeys: {
			// Sparse: retained-forever keys carry no expires_at.
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetSparse(true),
			},
		},
		colResults: {
			// The server drops expired results on its own; PurgeResults
			// is still honored for deterministic cleanup.
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0),
			},
		},
		colArtifacts: {
			{
				Keys: bson.D{
					{Key: "prefix", Value: 1},
					{Key: "stamp_ns", Value: 1},
					{Key: "seq", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "stamp_ns", Value: 1}}},
		},
		colRuns: {
			{Keys: bson.D{
				{Key: "actor", Value: 1},
				{Key: "started_at", Value: -1},
			}},
			{Keys: bson.D{
				{Key: "operation", Value: 1},
				{Key: "started_at", Value: -1},
			}},
		},
	}
}
