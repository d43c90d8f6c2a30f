package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/cache"
	"github.com/xraph/payroll/idempotency"
	"github.com/xraph/payroll/scope"
)

// ClaimKey inserts rec. When a record already holds the key it is replaced
// only if its retention ended at or before rec.AcceptedAt; the filtered
// replace is atomic, so concurrent takeovers admit one caller.
func (s *Store) ClaimKey(ctx context.Context, rec *idempotency.Record) (bool, error) {
	m := toKeyModel(rec)

	_, err := s.col(colKeys).InsertOne(ctx, m)
	if err == nil {
		return true, nil
	}
	if !isDuplicateKey(err) {
		return false, fmt.Errorf("payroll/mongo: claim key: %w", err)
	}

	res, err := s.col(colKeys).ReplaceOne(ctx, bson.M{
		"_id":        m.ID,
		"expires_at": bson.M{"$lte": rec.AcceptedAt},
	}, m)
	if err != nil {
		return false, fmt.Errorf("payroll/mongo: take over key: %w", err)
	}
	return res.MatchedCount == 1, nil
}

// PurgeKeys removes records whose retention ended before the given time.
func (s *Store) PurgeKeys(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.col(colKeys).DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": before}})
	if err != nil {
		return 0, fmt.Errorf("payroll/mongo: purge keys: %w", err)
	}
	return res.DeletedCount, nil
}

// GetResult returns the stored result for (sc, key).
func (s *Store) GetResult(ctx context.Context, sc scope.Scope, key string) (*cache.Result, error) {
	var m resultModel
	err := s.col(colResults).FindOne(ctx, bson.M{"_id": docID(sc, key)}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, payroll.ErrCacheMiss
		}
		return nil, fmt.Errorf("payroll/mongo: get result: %w", err)
	}
	return fromResultModel(&m), nil
}

// PutResult stores r, replacing any previous result for its key.
func (s *Store) PutResult(ctx context.Context, r *cache.Result) error {
	m := toResultModel(r)
	_, err := s.col(colResults).ReplaceOne(ctx, bson.M{"_id": m.ID}, m, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("payroll/mongo: put result: %w", err)
	}
	return nil
}

// PurgeResults removes results that expired before the given time.
func (s *Store) PurgeResults(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.col(colResults).DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": before}})
	if err != nil {
		return 0, fmt.Errorf("payroll/mongo: purge results: %w", err)
	}
	return res.DeletedCount, nil
}
