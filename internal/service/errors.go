package service

import (
	"errors"
	"time"

	"github.com/chainforge/chainforge/internal/model"
)

// Validation errors are rejected synchronously before any write; all of them
// are user-correctable, none should crash the host.
var (
	// ErrInvalidAmount means a non-positive or malformed amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrFutureDate means the entry date is after the as-of day.
	ErrFutureDate = errors.New("date cannot be in the future")

	// ErrTargetNotSet means progress was logged for a participant who has no
	// target in the period yet. Surfaced so the caller can prompt for one.
	ErrTargetNotSet = errors.New("set your target for this period first")

	// ErrConcurrencyConflict means a progress write kept losing the race
	// against concurrent writes to the same row after several retries.
	ErrConcurrencyConflict = errors.New("progress row modified concurrently, retry")

	// ErrNotGroupMember means the actor has no active membership in the group.
	ErrNotGroupMember = errors.New("not an active member of this group")

	// ErrNotGroupAdmin means the action needs the owner or admin role.
	ErrNotGroupAdmin = errors.New("requires group owner or admin role")
)

// futureDate reports whether date falls on a later calendar day than now.
// Comparison is day-granular: logging earlier today is fine.
func futureDate(date, now time.Time) bool {
	return date.Format(model.DateLayout) > now.Format(model.DateLayout)
}
