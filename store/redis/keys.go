package redis

import "github.com/xraph/payroll/scope"

// Redis key naming conventions for payroll data.
// All keys are prefixed with "payroll:" to avoid collisions.

const keyPrefix = "payroll:"

// claimKey returns the key for an idempotency claim:
// payroll:key:{operation}:{actor}:{key}
func claimKey(sc scope.Scope, key string) string {
	return keyPrefix + "key:" + sc.String() + ":" + key
}

// resultKey returns the key for a cached result:
// payroll:result:{operation}:{actor}:{key}
func resultKey(sc scope.Scope, key string) string {
	return keyPrefix + "result:" + sc.String() + ":" + key
}
