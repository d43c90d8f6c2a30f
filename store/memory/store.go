package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/cache"
	"github.com/xraph/payroll/id"
	"github.com/xraph/payroll/idempotency"
	"github.com/xraph/payroll/run"
	"github.com/xraph/payroll/scope"
)

// Ensure Store implements every subsystem store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ idempotency.Store = (*Store)(nil)
	_ cache.Store       = (*Store)(nil)
	_ artifact.Store    = (*Store)(nil)
	_ run.Store         = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
type Store struct {
	mu sync.RWMutex

	keys    map[string]*idempotency.Record // key: "scope|key"
	results map[string]*cache.Result       // key: "scope|key"
	arts    map[string]*artifact.Artifact  // key: artifact ID
	latest  map[string]*artifact.Artifact  // key: prefix
	runs    map[string]*run.Run
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		keys:    make(map[string]*idempotency.Record),
		results: make(map[string]*cache.Result),
		arts:    make(map[string]*artifact.Artifact),
		latest:  make(map[string]*artifact.Artifact),
		runs:    make(map[string]*run.Run),
	}
}

func scopedKey(s scope.Scope, key string) string {
	return s.String() + "|" + key
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Idempotency Store
// ──────────────────────────────────────────────────

// ClaimKey inserts rec unless an unexpired record with the same scope and
// key exists.
func (m *Store) ClaimKey(_ context.Context, rec *idempotency.Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := scopedKey(rec.Scope, rec.Key)
	if existing, ok := m.keys[k]; ok && !existing.Expired(rec.AcceptedAt) {
		return false, nil
	}
	cp := *rec
	m.keys[k] = &cp
	return true, nil
}

// PurgeKeys removes records whose retention ended before the given time.
func (m *Store) PurgeKeys(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for k, rec := range m.keys {
		if rec.Expired(before) {
			delete(m.keys, k)
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Result Cache Store
// ──────────────────────────────────────────────────

// GetResult returns the stored result for (s, key).
func (m *Store) GetResult(_ context.Context, s scope.Scope, key string) (*cache.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.results[scopedKey(s, key)]
	if !ok {
		return nil, payroll.ErrCacheMiss
	}
	cp := *r
	cp.Payload = append([]byte(nil), r.Payload...)
	return &cp, nil
}

// PutResult stores r, replacing any previous result for its key.
func (m *Store) PutResult(_ context.Context, r *cache.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *r
	cp.Payload = append([]byte(nil), r.Payload...)
	m.results[scopedKey(r.Scope, r.Key)] = &cp
	return nil
}

// PurgeResults removes results that expired before the given time.
func (m *Store) PurgeResults(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for k, r := range m.results {
		if r.Expired(before) {
			delete(m.results, k)
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Artifact Store
// ──────────────────────────────────────────────────

func copyArtifact(a *artifact.Artifact) *artifact.Artifact {
	cp := *a
	cp.Payload = append([]byte(nil), a.Payload...)
	return &cp
}

// InsertArtifact persists a new artifact. The stamp must sort strictly
// after the current latest artifact of its prefix.
func (m *Store) InsertArtifact(_ context.Context, a *artifact.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.latest[a.Prefix]; ok && !cur.Stamp().Before(a.Stamp()) {
		return artifact.ErrConflict
	}
	cp := copyArtifact(a)
	m.arts[a.ID.String()] = cp
	m.latest[a.Prefix] = cp
	return nil
}

// GetArtifact retrieves an artifact by ID.
func (m *Store) GetArtifact(_ context.Context, artifactID id.ArtifactID) (*artifact.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.arts[artifactID.String()]
	if !ok {
		return nil, payroll.ErrArtifactNotFound
	}
	return copyArtifact(a), nil
}

// LatestArtifact returns the newest artifact of prefix.
func (m *Store) LatestArtifact(_ context.Context, prefix string) (*artifact.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.latest[prefix]
	if !ok {
		return nil, payroll.ErrArtifactNotFound
	}
	return copyArtifact(a), nil
}

// ListArtifacts returns artifacts ordered by prefix then stamp.
func (m *Store) ListArtifacts(_ context.Context, opts artifact.ListOpts) ([]*artifact.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*artifact.Artifact
	for _, a := range m.arts {
		if opts.Prefix != "" && a.Prefix != opts.Prefix {
			continue
		}
		if !opts.Before.IsZero() && !a.CreatedAt.Before(opts.Before) {
			continue
		}
		result = append(result, copyArtifact(a))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Prefix != result[j].Prefix {
			return result[i].Prefix < result[j].Prefix
		}
		return result[i].Stamp().Before(result[j].Stamp())
	})

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

// DeleteArtifact removes an artifact by ID. Deleting the latest artifact
// of a prefix promotes the next newest one.
func (m *Store) DeleteArtifact(_ context.Context, artifactID id.ArtifactID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := artifactID.String()
	a, ok := m.arts[key]
	if !ok {
		return payroll.ErrArtifactNotFound
	}
	delete(m.arts, key)

	if cur := m.latest[a.Prefix]; cur != nil && cur.ID.String() == key {
		delete(m.latest, a.Prefix)
		for _, other := range m.arts {
			if other.Prefix != a.Prefix {
				continue
			}
			if best, ok := m.latest[a.Prefix]; !ok || best.Stamp().Before(other.Stamp()) {
				m.latest[a.Prefix] = other
			}
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Run Store
// ──────────────────────────────────────────────────

// SaveRun inserts or replaces a run.
func (m *Store) SaveRun(_ context.Context, r *run.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *r
	cp.History = append([]run.Transition(nil), r.History...)
	m.runs[r.ID.String()] = &cp
	return nil
}

// GetRun retrieves a run by ID.
func (m *Store) GetRun(_ context.Context, runID id.RunID) (*run.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runs[runID.String()]
	if !ok {
		return nil, payroll.ErrRunNotFound
	}
	cp := *r
	return &cp, nil
}

// ListRuns returns runs newest first.
func (m *Store) ListRuns(_ context.Context, opts run.ListOpts) ([]*run.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*run.Run
	for _, r := range m.runs {
		if opts.Operation != "" && r.Operation != opts.Operation {
			continue
		}
		if opts.Actor != 0 && r.Actor != opts.Actor {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}
