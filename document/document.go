// Package document defines the builder collaborator that turns employee
// and salary data into document bytes. Rendering is supplied by the
// embedding application; Tabular is a minimal built-in builder.
package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/payroll/directory"
)

// Document is a built, not yet archived, document.
type Document struct {
	Payload   []byte
	MediaType string
}

// Builder produces documents.
type Builder interface {
	// BuildSlip builds the salary slip of e for the month starting at
	// period. A missing salary record is a *ValidationError.
	BuildSlip(ctx context.Context, e *directory.Employee, period time.Time) (*Document, error)

	// BuildAggregate builds the salary report covering employees.
	BuildAggregate(ctx context.Context, employees []*directory.Employee, period time.Time) (*Document, error)
}

// ValidationError reports input that cannot produce a document, such as
// an employee without a salary record for the period. It is recorded
// against the employee and never aborts a batch.
type ValidationError struct {
	// Subject identifies the offending input, usually the employee code.
	Subject string
	Reason  string
	Err     error
}

// NewValidationError creates a ValidationError.
func NewValidationError(subject, reason string, err error) *ValidationError {
	return &ValidationError{Subject: subject, Reason: reason, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Subject == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Subject, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
