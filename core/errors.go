/*
errors.go - Centralized error taxonomy

ERROR CATEGORIES:
  1. Validation errors - bad input shape or range (safe to surface verbatim)
  2. Permission errors - role/permission/ownership denied
  3. State errors     - finalized month, frozen balance, cutoff passed, no rate
  4. NotFound errors  - missing user/record/settings (safe to surface verbatim)
  5. Conflict errors  - concurrent modification detected

State errors carry which state blocked the action so callers can render the
correct remediation (unfreeze vs. unfinalize vs. wait for tomorrow).

USAGE:
  Callers classify with errors.Is:

    if errors.Is(err, core.ErrState) { ... 409/403 ... }

  and extract details with errors.As:

    var frozen *core.FrozenBalanceError
    if errors.As(err, &frozen) { ... frozen.Reason ... }
*/
package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all bad-input errors.
	ErrValidation = errors.New("validation failed")

	// ErrPermission is the root of all authorization denials.
	ErrPermission = errors.New("permission denied")

	// ErrState is the root of all "valid request, wrong state" errors.
	ErrState = errors.New("operation blocked by current state")

	// ErrNotFound is the root of all missing-entity errors.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a concurrent modification is detected.
	ErrConflict = errors.New("conflict detected")

	// ErrDuplicateIdempotencyKey is returned when a transaction with the same
	// idempotency key already exists. Expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a specific bad field or range.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalidf builds a ValidationError with a formatted message.
func Invalidf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PermissionError reports which permission was missing.
type PermissionError struct {
	UserID     UserID
	Permission Permission
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s lacks permission %s", e.UserID, e.Permission)
}

func (e *PermissionError) Unwrap() error { return ErrPermission }

// FrozenBalanceError reports that a balance is frozen.
type FrozenBalanceError struct {
	UserID      UserID
	BalanceType string
	Reason      string
}

func (e *FrozenBalanceError) Error() string {
	return fmt.Sprintf("balance %s for user %s is frozen: %s", e.BalanceType, e.UserID, e.Reason)
}

func (e *FrozenBalanceError) Unwrap() error { return ErrState }

// FinalizedMonthError reports that a month's data is locked.
type FinalizedMonthError struct {
	Year  int
	Month int
}

func (e *FinalizedMonthError) Error() string {
	return fmt.Sprintf("month %04d-%02d is finalized", e.Year, e.Month)
}

func (e *FinalizedMonthError) Unwrap() error { return ErrState }

// CutoffPassedError reports that the toggle window for a date has closed.
type CutoffPassedError struct {
	Date       DayStamp
	MealType   string
	CutoffHour int
}

func (e *CutoffPassedError) Error() string {
	return fmt.Sprintf("cutoff passed for %s on %s (cutoff %02d:00)", e.MealType, e.Date, e.CutoffHour)
}

func (e *CutoffPassedError) Unwrap() error { return ErrState }

// OverrideGovernsError reports that a rule override shadows the cell, so the
// user cannot toggle it directly.
type OverrideGovernsError struct {
	Date     DayStamp
	MealType string
	RuleID   string
}

func (e *OverrideGovernsError) Error() string {
	return fmt.Sprintf("%s on %s is governed by override rule %s", e.MealType, e.Date, e.RuleID)
}

func (e *OverrideGovernsError) Unwrap() error { return ErrState }

// NoActiveRateError reports a date falling in a gap between configured months.
type NoActiveRateError struct {
	Date DayStamp
}

func (e *NoActiveRateError) Error() string {
	return fmt.Sprintf("no active rate configured for %s", e.Date)
}

func (e *NoActiveRateError) Unwrap() error { return ErrState }

// NotFoundError identifies which entity was missing.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStateError returns true if the error is a valid request blocked by state.
func IsStateError(err error) bool {
	return errors.Is(err, ErrState)
}

// IsRetryable returns true if the error might succeed on retry.
// Only read-path conflicts qualify; mutating operations are never auto-retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
