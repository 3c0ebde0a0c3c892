/*
errors.go - Centralized error taxonomy for the leave engine

PURPOSE:
  All failure kinds in one place. Callers branch with errors.Is on the
  sentinels; the structured types carry context for messages and logging.

ERROR CATEGORIES:
  1. Validation errors  - Bad input, rejected before any side effect
  2. Business failures  - Overlap conflicts, exhausted quota, illegal
     transitions, missing authority
  3. Collaborator failures - Storage writes that did not land
  4. Invariant violations  - Defensive only, these indicate a bug

USAGE:
  if errors.Is(err, leave.ErrOverlapConflict) { ... }

  var ib *leave.InsufficientBalanceError
  if errors.As(err, &ib) { fmt.Println(ib.Available) }

SEE ALSO:
  - workflow.go: Produces these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input (bad dates, unknown
	// leave type, missing identifiers). Nothing is mutated.
	ErrValidation = errors.New("invalid input")

	// ErrOverlapConflict is returned when the requested range intersects an
	// existing pending or approved request for the same employee.
	ErrOverlapConflict = errors.New("overlapping leave request")

	// ErrInsufficientBalance is returned when a reservation would exceed the
	// allotted quota for the accounting year.
	ErrInsufficientBalance = errors.New("insufficient leave balance")

	// ErrInvalidTransition is returned when the requested decision is not
	// legal from the request's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrForbidden is returned when the actor lacks authority for the action
	// (wrong manager, non-owner cancellation).
	ErrForbidden = errors.New("actor not authorized for this action")

	// ErrNotFound is returned when the referenced request does not exist.
	ErrNotFound = errors.New("leave request not found")

	// ErrStorage is returned when the persistence collaborator could not
	// durably apply a write. The engine surfaces it unchanged and never
	// retries internally; a retried approval could double-confirm quota.
	ErrStorage = errors.New("storage failure")

	// ErrInvariantViolation indicates broken internal accounting (for
	// example, a release larger than the outstanding reservation). It must
	// never be swallowed.
	ErrInvariantViolation = errors.New("balance invariant violation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which part of the input was malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// OverlapConflictError identifies the existing request that blocks the
// submitted range.
type OverlapConflictError struct {
	EmployeeID string
	Requested  DateRange
	Existing   DateRange
	ExistingID string
}

func (e *OverlapConflictError) Error() string {
	return fmt.Sprintf("requested range %s overlaps existing request %s covering %s",
		e.Requested, e.ExistingID, e.Existing)
}

func (e *OverlapConflictError) Unwrap() error { return ErrOverlapConflict }

// InsufficientBalanceError reports the shortfall for a reservation attempt.
type InsufficientBalanceError struct {
	Key       BalanceKey
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance for %s in %d: available %s, requested %s",
		e.Key.Type, e.Key.EmployeeID, e.Key.Year, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// InvalidTransitionError reports an illegal decision against the current state.
type InvalidTransitionError struct {
	RequestID string
	From      Status
	Action    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s request %s in status %s", e.Action, e.RequestID, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// ForbiddenError reports an actor acting outside their authority.
type ForbiddenError struct {
	ActorID string
	Action  string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("actor %s is not authorized to %s", e.ActorID, e.Action)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// StorageError wraps a persistence collaborator failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// InvariantError reports internal accounting corruption.
type InvariantError struct {
	Key    BalanceKey
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated for %s/%s/%d: %s",
		e.Key.EmployeeID, e.Key.Type, e.Key.Year, e.Detail)
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }
