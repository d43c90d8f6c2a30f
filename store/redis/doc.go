// Package redis implements store.KeyStore on Redis. It holds the
// idempotency keys and the result cache for deployments that keep the
// archive and run history in a SQL or document store but want key claims
// served from memory.
//
// Claims use SET NX with the key retention as TTL, so Redis expires
// retained keys itself and PurgeKeys/PurgeResults have nothing to do.
// Retention is measured by the Redis server clock from the moment of the
// claim.
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	keys := redis.New(client)
//	if err := keys.Ping(ctx); err != nil { ... }
package redis
