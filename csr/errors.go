/*
errors.go - Centralized error types for the CSR domain

PURPOSE:
  All domain error types in one place for consistency and discoverability.
  Other packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Validation errors - Uniqueness violations and bad field values.
     Rejected synchronously, never persisted.
  2. User errors - Business-rule violations surfaced to the end user
     (no linked profile, insufficient points). Reported with specifics,
     no side effects.
  3. Workflow errors - Batch-size violations on submit/approve/reject.
  4. Store errors - Missing records, optimistic-concurrency conflicts.

  External classification failures are NOT in this taxonomy on purpose:
  they are absorbed inside the classifier fallback and never reach callers.

USAGE:
  if errors.Is(err, csr.ErrInsufficientPoints) {
      var ipe *csr.InsufficientPointsError
      errors.As(err, &ipe)
      // ipe.Available, ipe.Required
  }
*/
package csr

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateProfile is returned when a second profile is created for
	// the same employee. One profile per employee, enforced at the store.
	ErrDuplicateProfile = errors.New("employee already has a CSR profile")

	// ErrDuplicateDepartment is returned when a second budget record is
	// created for the same HR department.
	ErrDuplicateDepartment = errors.New("department already has a carbon budget record")

	// ErrNoProfile is returned on redemption when the requester has no
	// linked profile. Exactly one profile must exist.
	ErrNoProfile = errors.New("no CSR profile linked to requester")

	// ErrInsufficientPoints is returned when a redemption costs more than
	// the requester's point balance.
	ErrInsufficientPoints = errors.New("insufficient impact points")

	// ErrRewardInactive is returned when redeeming a deactivated reward.
	ErrRewardInactive = errors.New("reward is not active")

	// ErrSingleRecordRequired is returned by workflow actions invoked on
	// zero or multiple records. Actions apply to exactly one activity and
	// fail fast before any mutation.
	ErrSingleRecordRequired = errors.New("workflow action requires exactly one record")

	// ErrInvalidTransition is returned when a status transition is not
	// allowed from the activity's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrReasonRequired is returned when rejecting without a reason.
	ErrReasonRequired = errors.New("rejection requires a reason")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("record not found")

	// ErrConcurrentModification is returned when an optimistic version
	// check fails on a profile write.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientPointsError reports both sides of a failed redemption, so the
// user sees "you have 50, you need 100".
type InsufficientPointsError struct {
	ProfileID ProfileID
	Available int
	Required  int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient impact points: have %d, need %d", e.Available, e.Required)
}

func (e *InsufficientPointsError) Unwrap() error {
	return ErrInsufficientPoints
}

// TransitionError reports a disallowed workflow transition.
type TransitionError struct {
	ActivityID ActivityID
	From       ActivityStatus
	To         ActivityStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move activity %s from %s to %s", e.ActivityID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// FieldError reports a bad field value on a record.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input or
// a business-rule violation (HTTP 4xx territory).
func IsClientError(err error) bool {
	var fieldErr *FieldError
	return errors.Is(err, ErrDuplicateProfile) ||
		errors.Is(err, ErrDuplicateDepartment) ||
		errors.Is(err, ErrNoProfile) ||
		errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrRewardInactive) ||
		errors.Is(err, ErrSingleRecordRequired) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrReasonRequired) ||
		errors.As(err, &fieldErr)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true for uniqueness and optimistic-concurrency
// violations.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateProfile) ||
		errors.Is(err, ErrDuplicateDepartment) ||
		errors.Is(err, ErrConcurrentModification)
}
