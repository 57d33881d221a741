package entity

import (
	"errors"
	"fmt"
)

// Lifecycle errors surfaced directly to the caller
var (
	ErrAlreadyVerified     = errors.New("subscription is already verified")
	ErrTokenExpired        = errors.New("verification token has expired")
	ErrMaxAttemptsExceeded = errors.New("maximum verification attempts exceeded")
	ErrInvalidToken        = errors.New("invalid token")
	ErrAlreadyUnsubscribed = errors.New("subscription is already unsubscribed")
	ErrNotUnsubscribed     = errors.New("subscription is not unsubscribed")
	ErrExpired             = errors.New("subscription has expired")
	ErrRateLimited         = errors.New("recipient rate limit exceeded")
)

// InvalidTransitionError reports a flight status transition outside the
// allowed table
type InvalidTransitionError struct {
	Current   FlightStatus
	Requested FlightStatus
	Allowed   []FlightStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s (allowed: %v)", e.Current, e.Requested, e.Allowed)
}

// ValidationError reports a malformed field value
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// ConflictError reports a uniqueness violation, e.g. a duplicate subscription
type ConflictError struct {
	Resource string
	Key      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Resource, e.Key)
}

// NotFoundError reports a missing document
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// DeliveryError reports a failed channel send. Transient failures are
// retried by the dispatcher up to its configured attempts.
type DeliveryError struct {
	Method DeliveryMethod
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery via %s failed: %v", e.Method, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// DatabaseError reports an unavailable persistence collaborator. During a
// dispatch batch it aborts the remaining subscriptions.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}
