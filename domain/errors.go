/*
errors.go - Centralized error types for the back office

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every error belongs to exactly one Kind; the HTTP layer maps the kind to a
  status code and nothing in the rule packages knows about HTTP.

ERROR KINDS:
  1. NotFound - referenced shift/staff/car wash does not exist
  2. Conflict - uniqueness or state invariant violated
  3. InvalidState - operation attempted outside its valid window or state
  4. Configuration - static rule tables do not cover a known input

USAGE:
  if errors.Is(err, domain.ErrShiftNotFound) { ... }

  var exists *domain.ShiftAlreadyExistsError
  if errors.As(err, &exists) {
      // exists.Dates lists every conflicting date
  }
*/
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// NotFound
	ErrShiftNotFound   = errors.New("shift not found")
	ErrStaffNotFound   = errors.New("staff not found")
	ErrCarWashNotFound = errors.New("car wash not found")
	ErrServiceNotFound = errors.New("car wash service not found")

	// Conflict
	ErrShiftAlreadyExists    = errors.New("shift already exists")
	ErrStaffHasActiveShift   = errors.New("staff has active shift")
	ErrShiftAlreadyConfirmed = errors.New("shift already confirmed")

	// InvalidState
	ErrShiftNotConfirmed         = errors.New("shift is not confirmed")
	ErrShiftRejected             = errors.New("shift is rejected")
	ErrShiftNotStarted           = errors.New("shift is not started")
	ErrShiftFinished             = errors.New("shift is already finished")
	ErrShiftStartOutsideWindow   = errors.New("shift can not be started at this time")
	ErrInvalidReportPeriodNumber = errors.New("invalid report period number")
	ErrInvalidInput              = errors.New("invalid input")

	// Configuration
	ErrInvalidPenaltyConsequence = errors.New("invalid penalty consequence")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ShiftAlreadyExistsError lists every requested date that already has a
// non-test shift for the staff member.
type ShiftAlreadyExistsError struct {
	StaffID StaffID
	Dates   []Date
}

func (e *ShiftAlreadyExistsError) Error() string {
	dates := make([]string, len(e.Dates))
	for i, d := range e.Dates {
		dates[i] = d.String()
	}
	return fmt.Sprintf("shift already exists for staff %d on %s", e.StaffID, strings.Join(dates, ", "))
}

func (e *ShiftAlreadyExistsError) Unwrap() error { return ErrShiftAlreadyExists }

// StaffHasActiveShiftError names the shift that is still running.
type StaffHasActiveShiftError struct {
	StaffID       StaffID
	ActiveShiftID ShiftID
}

func (e *StaffHasActiveShiftError) Error() string {
	return fmt.Sprintf("staff %d has active shift %d", e.StaffID, e.ActiveShiftID)
}

func (e *StaffHasActiveShiftError) Unwrap() error { return ErrStaffHasActiveShift }

// InvalidPenaltyConsequenceError means the penalty rule table has no entry
// for the reason. It signals a rule table / enum mismatch.
type InvalidPenaltyConsequenceError struct {
	StaffID StaffID
	Reason  PenaltyReason
	Count   int
}

func (e *InvalidPenaltyConsequenceError) Error() string {
	return fmt.Sprintf("invalid penalty consequence: staff %d, reason %q, prior penalties %d",
		e.StaffID, e.Reason, e.Count)
}

func (e *InvalidPenaltyConsequenceError) Unwrap() error { return ErrInvalidPenaltyConsequence }

// =============================================================================
// ERROR KINDS
// =============================================================================

type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindConflict      ErrorKind = "conflict"
	KindInvalidState  ErrorKind = "invalid_state"
	KindConfiguration ErrorKind = "configuration"
	KindInternal      ErrorKind = "internal"
)

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) ErrorKind {
	switch {
	case IsNotFound(err):
		return KindNotFound
	case IsConflict(err):
		return KindConflict
	case IsInvalidState(err):
		return KindInvalidState
	case errors.Is(err, ErrInvalidPenaltyConsequence):
		return KindConfiguration
	default:
		return KindInternal
	}
}

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrShiftNotFound) ||
		errors.Is(err, ErrStaffNotFound) ||
		errors.Is(err, ErrCarWashNotFound) ||
		errors.Is(err, ErrServiceNotFound)
}

// IsConflict returns true if the error is a uniqueness or state conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrShiftAlreadyExists) ||
		errors.Is(err, ErrStaffHasActiveShift) ||
		errors.Is(err, ErrShiftAlreadyConfirmed)
}

// IsInvalidState returns true if the operation is not allowed right now or
// the input is malformed.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrShiftNotConfirmed) ||
		errors.Is(err, ErrShiftRejected) ||
		errors.Is(err, ErrShiftNotStarted) ||
		errors.Is(err, ErrShiftFinished) ||
		errors.Is(err, ErrShiftStartOutsideWindow) ||
		errors.Is(err, ErrInvalidReportPeriodNumber) ||
		errors.Is(err, ErrInvalidInput)
}
