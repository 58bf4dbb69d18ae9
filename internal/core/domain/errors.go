package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("access forbidden")
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource conflict")
	ErrPartialFailure     = errors.New("partial failure")
	ErrTimeout            = errors.New("operation timed out")
	ErrStore              = errors.New("store unavailable")

	ErrEmailTaken   = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrAdminExists  = fmt.Errorf("%w: an administrator already exists", ErrConflict)
	ErrClientLinked = fmt.Errorf("%w: client already has a user account", ErrConflict)
)

// ValidationError carries per-field messages. It matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns a ValidationError with a single field message.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Add records msg for field, keeping the first message per field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// OrNil returns nil when no field failed.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// PartialFailureError reports a multi-step operation that left a side effect
// behind. Compensated is true when the side effect was rolled back.
type PartialFailureError struct {
	Operation   string
	UserID      string
	ClientID    string
	Compensated bool
	Cause       error
}

func (e *PartialFailureError) Error() string {
	state := "left in place"
	if e.Compensated {
		state = "rolled back"
	}
	return fmt.Sprintf("%s: user %s created but linking client %s failed (%s): %v",
		e.Operation, e.UserID, e.ClientID, state, e.Cause)
}

func (e *PartialFailureError) Unwrap() []error {
	return []error{ErrPartialFailure, e.Cause}
}
