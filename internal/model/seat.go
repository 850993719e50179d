package model

import "time"

// Seat types as stored in show_seats.seat_type.  The type is fixed per
// seat when the grid is generated and never changes across bookings.
const (
	SeatTypeNormal = "NORMAL" // standard seat
	SeatTypeVIP    = "VIP"    // premium seat
	SeatTypeCouple = "COUPLE" // paired seat, always booked with its partner
	SeatTypeFourDX = "FOURDX" // motion/effects seat
)

// Seat statuses as stored in show_seats.status.  SOLD is terminal: a sold
// seat never returns to AVAILABLE or HELD without an external refund
// workflow, which is out of scope for this service.
const (
	SeatStatusAvailable   = "AVAILABLE"
	SeatStatusHeld        = "HELD"
	SeatStatusSold        = "SOLD"
	SeatStatusMaintenance = "MAINTENANCE"
)

// ShowSeat is the persisted state of one seat for one showtime instance.
// Rows are created once when the instance's grid is generated and are
// mutated only by the reservation coordinator and the expiry sweeper.
//
// Fields:
//  ID            – primary key identifier.
//  InstanceID    – showtime instance this seat belongs to.
//  SeatLabel     – row letter(s) + column number, e.g. "D4"; unique per instance.
//  RowLabel      – alphabetical row component of the label.
//  ColNumber     – zero-based column component of the label.
//  SeatType      – one of the SeatType* constants.
//  Status        – one of the SeatStatus* constants.
//  HeldBy        – user holding the seat; nil unless status is HELD.
//  HeldAt        – when the current hold was created; nil unless HELD.
//  HoldExpiresAt – absolute hold deadline; nil unless HELD.
//  OrderRef      – order the seat was sold under; nil unless SOLD.
type ShowSeat struct {
	ID            uint64     // show_seats.id
	InstanceID    uint64     // show_seats.instance_id
	SeatLabel     string     // show_seats.seat_label
	RowLabel      string     // show_seats.row_label
	ColNumber     uint32     // show_seats.col_number
	SeatType      string     // show_seats.seat_type
	Status        string     // show_seats.status
	HeldBy        *uint64    // show_seats.held_by (nullable)
	HeldAt        *time.Time // show_seats.held_at (nullable)
	HoldExpiresAt *time.Time // show_seats.hold_expires_at (nullable)
	OrderRef      *string    // show_seats.order_ref (nullable)
}

// HoldExpired reports whether the seat carries a hold whose deadline has
// passed at the given instant.  Readers must treat such a seat as
// available even before the sweeper has physically reset the row.
func (s *ShowSeat) HoldExpired(now time.Time) bool {
	return s.Status == SeatStatusHeld && s.HoldExpiresAt != nil && !s.HoldExpiresAt.After(now)
}

// EffectiveStatus returns the status a reader should act on at the given
// instant: HELD with an elapsed deadline collapses to AVAILABLE (lazy
// expiry), every other status is reported as stored.
func (s *ShowSeat) EffectiveStatus(now time.Time) string {
	if s.HoldExpired(now) {
		return SeatStatusAvailable
	}
	return s.Status
}
