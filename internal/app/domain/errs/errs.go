// Package errs defines the sentinel errors shared by the storage and
// service layers. Services wrap these with context; the HTTP layer maps
// them to status codes with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks an operation the caller is not allowed to perform.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState marks input or state that fails validation.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidTransition marks a swap status change the state machine
	// does not permit.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrInsufficientFunds marks a debit larger than the balance.
	ErrInsufficientFunds = errors.New("insufficient points")
	// ErrPointsMismatch marks a redemption whose offered points differ from
	// the item's value.
	ErrPointsMismatch = errors.New("points mismatch")
	// ErrItemUnavailable marks an item that is not available for swap or
	// redemption.
	ErrItemUnavailable = errors.New("item unavailable")
	// ErrDuplicateRating marks a second rating for the same transaction.
	ErrDuplicateRating = errors.New("duplicate rating")
	// ErrSelfRating marks a user rating themselves.
	ErrSelfRating = errors.New("cannot rate yourself")
	// ErrInvalidRating marks a score outside the permitted range.
	ErrInvalidRating = errors.New("invalid rating score")
	// ErrConflict marks a concurrent update that lost the race.
	ErrConflict = errors.New("conflict")
	// ErrDuplicateEmail marks a registration with an email already in use.
	ErrDuplicateEmail = errors.New("email already registered")
)

// NotFound wraps ErrNotFound with the entity kind and id.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

// Forbidden wraps ErrForbidden with a reason.
func Forbidden(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrForbidden)
}

// TransitionError reports a swap status change the state machine rejects,
// carrying the attempted edge and the caller's role.
type TransitionError struct {
	From string
	To   string
	Role string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move swap from %s to %s as %s: %s", e.From, e.To, e.Role, ErrInvalidTransition)
}

// Is lets errors.Is(err, ErrInvalidTransition) match.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
