// Package idempotency gates pipeline operations on caller-supplied
// idempotency keys.
//
// A key is bound to a scope (operation, actor). The Guard admits the first
// request carrying a given (scope, key) and rejects every later or
// concurrent one with payroll.ErrDuplicateKey before any side effect runs.
// Admission is an atomic test-and-set in the backing Store, so two
// concurrent requests can never both proceed.
//
// The Guard knows nothing about business outcomes. It does not roll back
// a consumed key when the admitted operation later fails or is cancelled;
// a client must use a fresh key to retry.
package idempotency
