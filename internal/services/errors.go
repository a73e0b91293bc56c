// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
)

var (
	ErrReservationNotPending = errors.New("credit reservation is no longer pending")
	ErrUnknownPackage        = errors.New("unknown credit package")
	ErrPaymentNotSucceeded   = errors.New("payment has not succeeded")
	ErrPaymentsDisabled      = errors.New("payments are not configured")
)

// InsufficientCreditsError carries the exact shortfall so callers can show it.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

// PersistenceError wraps a failed write after credits were reserved.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type UnsupportedPlatformError struct {
	URL string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform for url %q", e.URL)
}

// NotFoundError is scoped to the requesting user; a record owned by someone
// else is reported the same way as a missing one.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConflictError reports a delete that would leave dangling references.
type ConflictError struct {
	Resource   string
	Dependents int64
	Dependent  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot delete %s: %d %s still reference it", e.Resource, e.Dependents, e.Dependent)
}

func notFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}
