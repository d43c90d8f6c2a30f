package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/backoff"
	"github.com/xraph/payroll/id"
)

// maxConflictRetries bounds how often Write re-reads the latest stamp after
// another writer sharing the store won the slot.
const maxConflictRetries = 5

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Archive) { a.logger = l }
}

// WithClock overrides the time source used for stamps.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) { a.now = now }
}

// WithConflictBackoff sets the delay strategy between re-stamp attempts.
func WithConflictBackoff(s backoff.Strategy) Option {
	return func(a *Archive) { a.backoff = s }
}

// Archive writes and reads artifacts, assigning each write a stamp
// strictly greater than every earlier artifact of its prefix. Writes to
// the same prefix are serialized in-process; writers in other processes
// are detected through ErrConflict and re-stamped.
type Archive struct {
	store   Store
	logger  *slog.Logger
	now     func() time.Time
	backoff backoff.Strategy

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	last  map[string]Stamp
}

// NewArchive creates an Archive over store.
func NewArchive(store Store, opts ...Option) *Archive {
	a := &Archive{
		store:   store,
		logger:  slog.Default(),
		now:     time.Now,
		backoff: backoff.DefaultStrategy(),
		locks:   make(map[string]*sync.Mutex),
		last:    make(map[string]Stamp),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Archive) prefixLock(prefix string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[prefix]
	if !ok {
		l = &sync.Mutex{}
		a.locks[prefix] = l
	}
	return l
}

func (a *Archive) lastStamp(prefix string) (Stamp, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.last[prefix]
	return st, ok
}

func (a *Archive) setLastStamp(prefix string, st Stamp) {
	a.mu.Lock()
	a.last[prefix] = st
	a.mu.Unlock()
}

// Write archives payload under prefix.
func (a *Archive) Write(ctx context.Context, prefix string, payload []byte, mediaType string) (*Artifact, error) {
	if prefix == "" {
		return nil, errors.New("payroll: artifact prefix is required")
	}

	l := a.prefixLock(prefix)
	l.Lock()
	defer l.Unlock()

	last, known := a.lastStamp(prefix)
	if !known {
		var err error
		if last, err = a.latestStamp(ctx, prefix); err != nil {
			return nil, err
		}
	}

	for attempt := 0; ; attempt++ {
		stamp := last.Next(a.now())
		art := &Artifact{
			ID:        id.NewArtifactID(),
			Prefix:    prefix,
			CreatedAt: stamp.At,
			Seq:       stamp.Seq,
			MediaType: mediaType,
			Payload:   payload,
			Size:      int64(len(payload)),
		}

		err := a.store.InsertArtifact(ctx, art)
		if err == nil {
			a.setLastStamp(prefix, stamp)
			a.logger.Debug("artifact archived",
				slog.String("artifact_id", art.ID.String()),
				slog.String("prefix", prefix),
				slog.Int64("size", art.Size),
			)
			return art, nil
		}
		if !errors.Is(err, ErrConflict) || attempt >= maxConflictRetries {
			return nil, payroll.NewResourceError("archive", fmt.Errorf("write %s: %w", prefix, err))
		}
		a.logger.Debug("artifact stamp taken, retrying",
			slog.String("prefix", prefix),
			slog.Int("attempt", attempt+1),
		)
		if err := backoff.Wait(ctx, a.backoff, attempt+1); err != nil {
			return nil, err
		}
		if last, err = a.latestStamp(ctx, prefix); err != nil {
			return nil, err
		}
	}
}

func (a *Archive) latestStamp(ctx context.Context, prefix string) (Stamp, error) {
	cur, err := a.store.LatestArtifact(ctx, prefix)
	switch {
	case errors.Is(err, payroll.ErrArtifactNotFound):
		return Stamp{}, nil
	case err != nil:
		return Stamp{}, payroll.NewResourceError("archive", fmt.Errorf("latest %s: %w", prefix, err))
	}
	return cur.Stamp(), nil
}

// Latest returns the most recent artifact of prefix or
// payroll.ErrArtifactNotFound.
func (a *Archive) Latest(ctx context.Context, prefix string) (*Artifact, error) {
	art, err := a.store.LatestArtifact(ctx, prefix)
	if err != nil {
		if errors.Is(err, payroll.ErrArtifactNotFound) {
			return nil, err
		}
		return nil, payroll.NewResourceError("latest artifact", err)
	}
	return art, nil
}

// Get returns the artifact with the given ID.
func (a *Archive) Get(ctx context.Context, artifactID id.ArtifactID) (*Artifact, error) {
	return a.store.GetArtifact(ctx, artifactID)
}

// List returns artifacts matching opts. It is meant for maintenance.
func (a *Archive) List(ctx context.Context, opts ListOpts) ([]*Artifact, error) {
	return a.store.ListArtifacts(ctx, opts)
}

// Delete removes an artifact. Only the cleanup command calls it.
func (a *Archive) Delete(ctx context.Context, artifactID id.ArtifactID) error {
	return a.store.DeleteArtifact(ctx, artifactID)
}

// Prune deletes every artifact created before cutoff and returns how many
// were removed. The newest artifact of each prefix is always kept so
// Latest keeps answering.
func (a *Archive) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	arts, err := a.store.ListArtifacts(ctx, ListOpts{Before: cutoff})
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, art := range arts {
		latest, err := a.store.LatestArtifact(ctx, art.Prefix)
		if err == nil && latest.ID.String() == art.ID.String() {
			continue
		}
		if err := a.store.DeleteArtifact(ctx, art.ID); err != nil {
			return removed, fmt.Errorf("delete %s: %w", art.ID, err)
		}
		removed++
	}
	return removed, nil
}
