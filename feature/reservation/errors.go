package reservation

import (
	"errors"
	"fmt"
	"strings"

	"cabin-manager/core/reconcile"
)

var (
	// ErrNotFound is returned when no reservation matches a key.
	ErrNotFound = errors.New("reservation not found")
	// ErrConflict is returned when a booking overlaps an existing reservation.
	ErrConflict = errors.New("reservation conflicts with an existing booking")
	// ErrUnknownCabin is returned for a cabin that is not configured.
	ErrUnknownCabin = errors.New("unknown cabin")
	// ErrInvalidRequest is returned for missing or inconsistent fields.
	ErrInvalidRequest = errors.New("invalid reservation request")
	// ErrAmbiguous is returned when a guest name matches several reservations.
	ErrAmbiguous = errors.New("guest name matches several reservations")
)

// ConflictError lists the reservations a booking overlaps.
type ConflictError struct {
	Cabin     string
	Conflicts []reconcile.Reservation
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s %s..%s", c.GuestName, c.CheckIn, c.CheckOut))
	}
	return fmt.Sprintf("%v in %s: %s", ErrConflict, e.Cabin, strings.Join(parts, ", "))
}

// Is matches ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
