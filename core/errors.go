package core

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to the API boundary. Handlers translate these into
// response codes; nothing in the core treats them as fatal.
var (
	// ErrAlertNotFound indicates a lifecycle operation referenced an unknown alert id
	ErrAlertNotFound = errors.New("alert not found")
	// ErrAlertResolved indicates a lifecycle operation on an already-resolved alert
	ErrAlertResolved = errors.New("alert is already resolved")
	// ErrBusy indicates a bounded lock acquisition timed out; the call is retryable
	ErrBusy = errors.New("store is busy, retry")
)

// ValidationError reports invalid caller input to a lifecycle operation,
// such as a missing actor identity.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
