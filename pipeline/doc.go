// Package pipeline runs the four boundary operations of the payroll
// system: creating the aggregate salary report, creating individual
// salary slips, and sending either of them by email.
//
// Every operation follows the same template:
//
//  1. A result cached under the idempotency key is replayed byte for byte.
//  2. The idempotency guard admits the key or rejects it as a duplicate.
//  3. The actor's employees are resolved through the directory.
//  4. Documents are built; validation failures are recorded per employee.
//  5. Built documents are archived.
//  6. Send operations dispatch the latest archived documents.
//  7. The JSON result is cached and returned.
//
// Business outcomes (including "nothing to do" and per-recipient failures)
// are returned as an Outcome with a Status; only client errors and guard
// failures are returned as Go errors.
package pipeline
