package application

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrInvalidTransition is returned when an operation is not allowed from the current status.
	ErrInvalidTransition = errors.New("application: invalid transition")
	// ErrConflict is returned when a session slot is already taken.
	ErrConflict = errors.New("application: scheduling conflict")
	// ErrInvariantViolation is returned when an operation would break an entity invariant.
	ErrInvariantViolation = errors.New("application: invariant violation")
)

// Entity kinds used in error values and log attributes.
const (
	KindUser    = "user"
	KindListing = "skill_listing"
	KindRequest = "swap_request"
	KindSwap    = "swap"
	KindEvent   = "schedule_event"
)

// NotFoundError identifies the missing entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("application: %s %q not found", e.Kind, e.ID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func newValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.add(field, message)
	return v
}

// InvalidTransitionError reports an operation attempted from a status that
// does not permit it, including a repeated terminal transition.
type InvalidTransitionError struct {
	Kind      string
	ID        string
	From      string
	Operation string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("application: cannot %s %s %q in status %s", e.Operation, e.Kind, e.ID, e.From)
}

// Is matches ErrInvalidTransition.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// SlotConflict names an existing event that already holds a participant's slot.
type SlotConflict struct {
	EventID string `json:"eventId"`
	UserID  string `json:"userId"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

// ConflictError reports a double-booked (date, time) slot.
type ConflictError struct {
	Date      string
	Time      string
	Conflicts []SlotConflict
}

func (e *ConflictError) Error() string {
	users := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		users = append(users, c.UserID)
	}
	return fmt.Sprintf("application: slot %s %s already booked for %s", e.Date, e.Time, strings.Join(users, ", "))
}

// Is matches ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// InvariantViolationError reports an operation that would break an invariant,
// such as recording more sessions than a swap allows.
type InvariantViolationError struct {
	Kind   string
	ID     string
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("application: %s %q: %s", e.Kind, e.ID, e.Detail)
}

// Is matches ErrInvariantViolation.
func (e *InvariantViolationError) Is(target error) bool {
	return target == ErrInvariantViolation
}
