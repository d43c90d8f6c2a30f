package payroll

import (
	"errors"
	"fmt"
)

var (
	// Client errors.
	ErrMissingKey   = errors.New("payroll: missing idempotency key")
	ErrDuplicateKey = errors.New("payroll: duplicate request: idempotency key already used")

	// Not found errors.
	ErrNoRecipients     = errors.New("payroll: no recipients")
	ErrArtifactNotFound = errors.New("payroll: no artifact available")
	ErrEmployeeNotFound = errors.New("payroll: employee not found")
	ErrUserNotFound     = errors.New("payroll: user not found")
	ErrRunNotFound      = errors.New("payroll: run not found")

	// Store errors.
	ErrNoStore          = errors.New("payroll: no store configured")
	ErrStoreUnavailable = errors.New("payroll: store unavailable")
	ErrCacheMiss        = errors.New("payroll: cache miss")

	// State errors.
	ErrInvalidState = errors.New("payroll: invalid state transition")
)

// ResourceError marks a failure of an infrastructure dependency (artifact
// store, transport, directory backend) as opposed to a client or
// validation error. It is recorded per recipient; on the aggregate path it
// is fatal for the operation.
type ResourceError struct {
	Op  string
	Err error
}

// NewResourceError wraps err as a ResourceError for op. A nil err yields nil.
func NewResourceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *ResourceError
	if errors.As(err, &re) {
		return err
	}
	return &ResourceError{Op: op, Err: err}
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("payroll: %s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// IsClientError reports whether err is a missing or duplicate idempotency key.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingKey) || errors.Is(err, ErrDuplicateKey)
}

// IsNotFound reports whether err is one of the NotFound-shaped errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoRecipients) ||
		errors.Is(err, ErrArtifactNotFound) ||
		errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrRunNotFound)
}
