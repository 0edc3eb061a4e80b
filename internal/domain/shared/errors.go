// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external
// dependencies beyond money/uuid primitives.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrNegativeValue = errors.New("value cannot be negative")
	ErrInvalidFormat = errors.New("invalid format")

	// Payment errors
	ErrAuthentication    = errors.New("bank credentials rejected")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Enrollment errors
	ErrAlreadyEnrolled = errors.New("already enrolled")
	ErrAccessDenied    = errors.New("access denied")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "settlement", "enrollment", "certificate"
	Op      string // Operation that failed, e.g., "Settle", "RecordProgress"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Account domain errors
var (
	ErrAccountNotFound  = NewDomainError("account", "Find", ErrNotFound, "bank account not found")
	ErrUserNotFound     = NewDomainError("account", "FindUser", ErrNotFound, "user not found")
	ErrBadSecret        = NewDomainError("account", "Authenticate", ErrAuthentication, "invalid bank credentials")
	ErrNegativeBalance  = NewDomainError("account", "Debit", ErrInsufficientFunds, "balance would become negative")
	ErrDuplicateAccount = NewDomainError("account", "Create", ErrAlreadyExists, "account number already registered")
)

// Course domain errors
var (
	ErrCourseNotFound = NewDomainError("course", "Find", ErrNotFound, "course not found")
	ErrVideoNotFound  = NewDomainError("course", "FindVideo", ErrNotFound, "video not found in course")
	ErrCourseInvalid  = NewDomainError("course", "Validate", ErrValidation, "course definition is invalid")
)

// Enrollment domain errors
var (
	ErrEnrollmentNotFound = NewDomainError("enrollment", "Find", ErrNotFound, "enrollment not found")
	ErrEnrollmentExists   = NewDomainError("enrollment", "Create", ErrAlreadyEnrolled, "learner already enrolled in this course")
	ErrEnrollmentAccess   = NewDomainError("enrollment", "CheckAccess", ErrAccessDenied, "no access to this course")
	ErrCompletedIsFinal   = NewDomainError("enrollment", "Transition", ErrStateTransition, "completed enrollments cannot go back to in progress")
)

// Certificate domain errors
var (
	ErrCertificateNotFound  = NewDomainError("certificate", "Find", ErrNotFound, "certificate not found")
	ErrCertificateDuplicate = NewDomainError("certificate", "Create", ErrAlreadyExists, "certificate already issued for this learner and course")
	ErrCourseNotCompleted   = NewDomainError("certificate", "Check", ErrAccessDenied, "course not completed yet")
)

// Ledger domain errors
var (
	ErrTransactionNotFound = NewDomainError("ledger", "Find", ErrNotFound, "transaction not found")
	ErrSettlementConflict  = NewDomainError("ledger", "Apply", ErrConcurrentModification, "settlement conflicted with a concurrent write")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsAuthentication checks if the error is a credentials failure.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// IsInsufficientFunds checks if the error is a balance shortage.
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// IsAlreadyEnrolled checks if the error is a duplicate-enrollment rejection.
func IsAlreadyEnrolled(err error) bool {
	return errors.Is(err, ErrAlreadyEnrolled)
}

// IsAccessDenied checks if the error is an access rejection.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsRetryable checks if the operation can be retried safely.
// Settlements are deliberately excluded: a blind settlement retry
// double-charges, so only optimistic-lock conflicts qualify.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
