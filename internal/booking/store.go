package booking

import (
	"context"
	"time"

	"github.com/cinetix/showtime-booking/internal/model"
)

// Tx is the transactional mutation surface of the seat ledger.  Every
// Mark* method is a single conditional update: it returns true when the
// transition was granted and false when the seat's current state refused
// it.  Decisions are made by the storage layer's compare-and-set, never
// by a read followed by a write in the application tier.
type Tx interface {
	// SeatsByLabels loads the seats with the given labels for one
	// instance.  Labels absent from the layout are simply missing from
	// the result; callers detect them by comparing lengths.
	SeatsByLabels(ctx context.Context, instanceID uint64, labels []string) ([]model.ShowSeat, error)

	// MarkHeld grants a hold to userID when the seat is available, when
	// its current hold has expired at `now`, or when the seat is already
	// held by the same user (re-hold: the deadline resets to expiresAt).
	// Sold and maintenance seats always refuse.
	MarkHeld(ctx context.Context, instanceID uint64, label string, userID uint64, now, expiresAt time.Time) (bool, error)

	// MarkReleased returns a seat to available only when it is currently
	// held by userID.  Any other state is a no-op and returns false
	// without error.
	MarkReleased(ctx context.Context, instanceID uint64, label string, userID uint64) (bool, error)

	// MarkSold transitions a seat to sold under orderRef regardless of
	// who holds it; a successful payment always wins a race against the
	// hold timer.  It refuses only when the seat is already sold under a
	// different order.  Re-finalizing the same order is idempotent.
	MarkSold(ctx context.Context, instanceID uint64, label string, orderRef string, now time.Time) (bool, error)

	// HeldLabelsByUser lists the labels of every seat currently recorded
	// as held by userID on the instance, expired holds included.
	HeldLabelsByUser(ctx context.Context, instanceID, userID uint64) ([]string, error)
}

// Store is the seat ledger's persistence contract.  The SQL
// implementation lives in internal/repository.
type Store interface {
	// InstanceByID resolves a showtime instance.  A missing instance
	// yields ErrInstanceNotFound.
	InstanceByID(ctx context.Context, id uint64) (*model.ShowtimeInstance, error)

	// SeatsForInstance returns the instance's full seat map ordered by
	// row and column.
	SeatsForInstance(ctx context.Context, instanceID uint64) ([]model.ShowSeat, error)

	// InTx runs fn inside one transaction.  When fn returns an error the
	// transaction rolls back fully, so a multi-seat batch never commits
	// partially.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// ReleaseExpired physically resets every seat whose hold deadline has
	// passed at `now` back to available and reports how many were reset.
	// This bounds storage staleness only; lazy expiry at read/hold time
	// is the correctness backstop.
	ReleaseExpired(ctx context.Context, now time.Time) (int64, error)
}
