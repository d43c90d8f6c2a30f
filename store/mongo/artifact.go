package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/id"
)

var newestFirst = bson.D{{Key: "stamp_ns", Value: -1}, {Key: "seq", Value: -1}}

// InsertArtifact persists a new artifact. The prefix head is advanced
// first with a conditional upsert; a stamp that does not exceed the head
// fails the upsert with a duplicate _id and is reported as ErrConflict.
func (s *Store) InsertArtifact(ctx context.Context, a *artifact.Artifact) error {
	m := toArtifactModel(a)

	filter := bson.M{
		"_id": a.Prefix,
		"$or": bson.A{
			bson.M{"stamp_ns": bson.M{"$lt": m.StampNS}},
			bson.M{"stamp_ns": m.StampNS, "seq": bson.M{"$lt": m.Seq}},
		},
	}
	update := bson.M{"$set": bson.M{"stamp_ns": m.StampNS, "seq": m.Seq, "artifact_id": m.ID}}

	var prev headModel
	hadPrev := true
	err := s.col(colHeads).FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before),
	).Decode(&prev)
	switch {
	case isNoDocuments(err):
		hadPrev = false
	case isDuplicateKey(err):
		return artifact.ErrConflict
	case err != nil:
		return fmt.Errorf("payroll/mongo: advance artifact head: %w", err)
	}

	if _, err := s.col(colArtifacts).InsertOne(ctx, m); err != nil {
		s.rollbackHead(ctx, m, &prev, hadPrev)
		if isDuplicateKey(err) {
			return artifact.ErrConflict
		}
		return fmt.Errorf("payroll/mongo: insert artifact: %w", err)
	}
	return nil
}

// rollbackHead restores the head after a failed insert, unless another
// writer has advanced it since.
func (s *Store) rollbackHead(ctx context.Context, m *artifactModel, prev *headModel, hadPrev bool) {
	ctx = context.WithoutCancel(ctx)
	ours := bson.M{"_id": m.Prefix, "stamp_ns": m.StampNS, "seq": m.Seq}

	var err error
	if hadPrev {
		_, err = s.col(colHeads).UpdateOne(ctx, ours, bson.M{"$set": bson.M{
			"stamp_ns": prev.StampNS, "seq": prev.Seq, "artifact_id": prev.ArtifactID,
		}})
	} else {
		_, err = s.col(colHeads).DeleteOne(ctx, ours)
	}
	if err != nil {
		s.logger.Warn("artifact head rollback failed",
			slog.String("prefix", m.Prefix),
			slog.String("error", err.Error()),
		)
	}
}

// GetArtifact retrieves an artifact by ID.
func (s *Store) GetArtifact(ctx context.Context, artifactID id.ArtifactID) (*artifact.Artifact, error) {
	return s.findArtifact(ctx, bson.M{"_id": artifactID.String()}, options.FindOne())
}

// LatestArtifact returns the newest artifact of prefix.
func (s *Store) LatestArtifact(ctx context.Context, prefix string) (*artifact.Artifact, error) {
	return s.findArtifact(ctx, bson.M{"prefix": prefix}, options.FindOne().SetSort(newestFirst))
}

func (s *Store) findArtifact(ctx context.Context, filter bson.M, opts *options.FindOneOptionsBuilder) (*artifact.Artifact, error) {
	var m artifactModel
	if err := s.col(colArtifacts).FindOne(ctx, filter, opts).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, payroll.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("payroll/mongo: find artifact: %w", err)
	}
	return fromArtifactModel(&m)
}

// ListArtifacts returns artifacts ordered by prefix then stamp.
func (s *Store) ListArtifacts(ctx context.Context, opts artifact.ListOpts) ([]*artifact.Artifact, error) {
	filter := bson.M{}
	if opts.Prefix != "" {
		filter["prefix"] = opts.Prefix
	}
	if !opts.Before.IsZero() {
		filter["stamp_ns"] = bson.M{"$lt": opts.Before.UnixNano()}
	}

	findOpts := options.Find().SetSort(bson.D{
		{Key: "prefix", Value: 1},
		{Key: "stamp_ns", Value: 1},
		{Key: "seq", Value: 1},
	})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cursor, err := s.col(colArtifacts).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("payroll/mongo: list artifacts: %w", err)
	}
	var models []artifactModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("payroll/mongo: decode artifacts: %w", err)
	}

	out := make([]*artifact.Artifact, 0, len(models))
	for i := range models {
		a, err := fromArtifactModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("payroll/mongo: decode artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

// DeleteArtifact removes an artifact by ID. The prefix head is left in
// place so later stamps keep increasing.
func (s *Store) DeleteArtifact(ctx context.Context, artifactID id.ArtifactID) error {
	res, err := s.col(colArtifacts).DeleteOne(ctx, bson.M{"_id": artifactID.String()})
	if err != nil {
		return fmt.Errorf("payroll/mongo: delete artifact: %w", err)
	}
	if res.DeletedCount == 0 {
		return payroll.ErrArtifactNotFound
	}
	return nil
}
