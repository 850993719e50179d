// Package booking implements the seat-hold core: the ledger read surface,
// the reservation coordinator that mutates seat state, and the hold expiry
// sweeper.  All state transitions go through the Store's conditional
// update primitives so that the database remains the sole serialization
// point for concurrent requests.
package booking

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInstanceNotFound is returned when the referenced showtime instance
// does not exist.  Handlers should translate this into an HTTP 404; an
// unknown instance is never treated as an empty seat map.
var ErrInstanceNotFound = errors.New("showtime instance not found")

// ErrNoSeats is returned when an operation is invoked with an empty seat
// selection where one is required.
var ErrNoSeats = errors.New("no seats requested")

// ErrTooManySeats is returned when a hold request exceeds the per-checkout
// seat limit after couple-pair expansion.
var ErrTooManySeats = errors.New("too many seats for one checkout")

// ErrMixedSeatTypes is returned when a hold request mixes seat types in
// one batch.  A checkout is locked to a single seat type.
var ErrMixedSeatTypes = errors.New("seats in one checkout must share a single seat type")

// ErrOrderRefRequired is returned when finalize is invoked without an
// order reference.
var ErrOrderRefRequired = errors.New("order reference is required")

// ErrPairingViolation is returned when a mutation would leave exactly one
// member of a couple pair in a different state than its partner.  The
// coordinator expands pairs itself, so this is unreachable through the
// public operations; it is still verified before every commit and forces
// a rollback when detected.
var ErrPairingViolation = errors.New("couple pair would be split")

// SeatsNotFoundError reports seat labels that do not exist in the
// instance's layout.  Handlers translate it into a 404 carrying the
// unknown labels so the client can pinpoint the bad selection.
type SeatsNotFoundError struct {
	Labels []string
}

func (e *SeatsNotFoundError) Error() string {
	return fmt.Sprintf("unknown seats: %s", strings.Join(e.Labels, ","))
}

// ConflictError reports seats whose state transition was refused: held by
// another user with an unexpired hold, or already sold (under a different
// order, for finalize).  The rejection is per seat so the client can
// highlight exactly which selections failed and re-render the map.
type ConflictError struct {
	Rejected []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("seats unavailable: %s", strings.Join(e.Rejected, ","))
}
