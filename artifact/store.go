package artifact

import (
	"context"
	"time"

	"github.com/xraph/payroll/id"
)

// ListOpts controls pagination and filtering for listing artifacts.
type ListOpts struct {
	// Prefix restricts the listing to one document family. Empty lists all.
	Prefix string
	// Before restricts the listing to artifacts created before this time.
	Before time.Time
	// Limit is the maximum number of artifacts to return. Zero means no limit.
	Limit int
}

// Store defines the persistence contract for artifacts.
type Store interface {
	// InsertArtifact persists a new artifact. It returns ErrConflict when
	// an artifact of the same prefix already has a stamp at or after
	// a.Stamp().
	InsertArtifact(ctx context.Context, a *Artifact) error

	// GetArtifact retrieves an artifact by ID.
	GetArtifact(ctx context.Context, artifactID id.ArtifactID) (*Artifact, error)

	// LatestArtifact returns the artifact of prefix with the greatest
	// stamp, or payroll.ErrArtifactNotFound.
	LatestArtifact(ctx context.Context, prefix string) (*Artifact, error)

	// ListArtifacts returns artifacts ordered by prefix then stamp.
	ListArtifacts(ctx context.Context, opts ListOpts) ([]*Artifact, error)

	// DeleteArtifact removes an artifact by ID.
	DeleteArtifact(ctx context.Context, artifactID id.ArtifactID) error
}
