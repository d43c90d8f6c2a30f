package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/id"
	"github.com/xraph/payroll/run"
)

// SaveRun inserts or replaces a run.
func (s *Store) SaveRun(ctx context.Context, r *run.Run) error {
	m := toRunModel(r)
	_, err := s.col(colRuns).ReplaceOne(ctx, bson.M{"_id": m.ID}, m, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("payroll/mongo: save run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID id.RunID) (*run.Run, error) {
	var m runModel
	err := s.col(colRuns).FindOne(ctx, bson.M{"_id": runID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, payroll.ErrRunNotFound
		}
		return nil, fmt.Errorf("payroll/mongo: get run: %w", err)
	}
	return fromRunModel(&m)
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, opts run.ListOpts) ([]*run.Run, error) {
	filter := bson.M{}
	if opts.Operation != "" {
		filter["operation"] = string(opts.Operation)
	}
	if opts.Actor != 0 {
		filter["actor"] = opts.Actor
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cursor, err := s.col(colRuns).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("payroll/mongo: list runs: %w", err)
	}
	var models []runModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("payroll/mongo: decode runs: %w", err)
	}

	out := make([]*run.Run, 0, len(models))
	for i := range models {
		r, err := fromRunModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("payroll/mongo: decode run: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}
