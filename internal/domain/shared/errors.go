// Package shared contains common domain types, errors, and events that are
// used across all domain packages. This package has zero external dependencies.
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
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrExpired          = errors.New("expired")

	// Authorization errors
	ErrForbidden = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progression", "ranked", "quiz"
	Op      string // Operation that failed, e.g., "Grant", "Submit"
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

// Progression domain errors
var (
	ErrProgressNotFound        = NewDomainError("progression", "Find", ErrNotFound, "user progress not found")
	ErrProgressAlreadyExists   = NewDomainError("progression", "Create", ErrAlreadyExists, "user progress already exists")
	ErrMilestoneNotFound       = NewDomainError("progression", "FindMilestone", ErrNotFound, "milestone not found")
	ErrMilestoneAlreadyGranted = NewDomainError("progression", "Grant", ErrAlreadyExists, "milestone already granted")
	ErrInvalidMilestoneConfig  = NewDomainError("progression", "LoadConfig", ErrInvalidEntity, "invalid milestone configuration")
	ErrInvalidBoostMultiplier  = NewDomainError("progression", "MergeBoost", ErrValueOutOfRange, "boost multiplier must be at least 1.0")
)

// Ranked domain errors
var (
	ErrSessionNotFound      = NewDomainError("ranked", "FindSession", ErrNotFound, "ranked session not found")
	ErrSessionAlreadyExists = NewDomainError("ranked", "CreateSession", ErrAlreadyExists, "ranked session already exists")
	ErrSessionInactive      = NewDomainError("ranked", "SubmitAttempt", ErrInvalidState, "ranked session is not active")
	ErrSessionForeign       = NewDomainError("ranked", "SubmitAttempt", ErrForbidden, "ranked session belongs to another user")
	ErrSessionAlreadyEnded  = NewDomainError("ranked", "EndSession", ErrAlreadyProcessed, "ranked session already ended")
	ErrInvalidDifficulty    = NewDomainError("ranked", "Score", ErrValueOutOfRange, "difficulty must be between 1 and 5")
)

// Quiz collaborator errors
var (
	ErrQuestionNotFound = NewDomainError("quiz", "Find", ErrNotFound, "question not found")
	ErrInvalidQuestion  = NewDomainError("quiz", "Validate", ErrInvalidEntity, "invalid question")
)

// Hint-wallet collaborator errors
var (
	ErrWalletUnavailable = NewDomainError("wallet", "AddHints", ErrExternalService, "hint wallet is unavailable")
	ErrWalletRejected    = NewDomainError("wallet", "AddHints", ErrInvalidInput, "hint wallet rejected the credit")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsConflict checks if the error is a concurrency conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrOptimisticLock)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
