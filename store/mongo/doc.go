// Package mongo implements store.Store on MongoDB using the official
// driver. Each record kind lives in its own collection:
//
//	payroll_keys            idempotency records, _id = "<scope>|<key>"
//	payroll_results         cached outcomes, TTL-indexed on expires_at
//	payroll_artifacts       archived documents, unique (prefix, stamp_ns, seq)
//	payroll_artifact_heads  newest stamp per prefix
//	payroll_runs            run records with embedded history
//
// Stamps are stored as Unix nanoseconds because BSON datetimes only keep
// milliseconds. The head document per prefix is advanced with a single
// conditional upsert, which serializes stamp assignment across instances.
//
// Pass a *mongo.Database you own to [New], or let [Open] dial one:
//
//	s, err := mongo.Open(ctx, "mongodb://localhost:27017", "payroll")
//	if err != nil { ... }
//	defer s.Close()
//	s.Migrate(ctx)
package mongo
