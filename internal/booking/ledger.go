package booking

import (
	"context"
	"time"

	"github.com/cinetix/showtime-booking/internal/model"
)

// SeatView is the client-visible state of one seat.  Foreign holds are
// reported as HELD without holder details; the deadline is exposed only
// for the viewer's own holds so the client can show the checkout timer.
type SeatView struct {
	SeatLabel     string     `json:"seat_label"`
	SeatType      string     `json:"seat_type"`
	Status        string     `json:"status"`
	HeldByMe      bool       `json:"held_by_me,omitempty"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
}

// SeatMap is the freshness-guaranteed view of one instance's seats,
// ordered by row and column, together with the grid dimensions needed to
// render it.
type SeatMap struct {
	InstanceID uint64     `json:"instance_id"`
	SeatRows   uint32     `json:"seat_rows"`
	SeatCols   uint32     `json:"seat_cols"`
	Seats      []SeatView `json:"seats"`
}

// Ledger is the read surface of the seat subsystem.  Every read applies
// lazy expiry: a hold whose deadline has passed is reported as available
// whether or not the sweeper has reset the underlying row yet.
type Ledger struct {
	store Store
	clock Clock
}

// NewLedger constructs a Ledger bound to the given store.
func NewLedger(store Store, opts ...LedgerOption) *Ledger {
	if store == nil {
		panic("nil store passed to NewLedger")
	}
	l := &Ledger{store: store, clock: SystemClock{}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LedgerOption customises a Ledger.
type LedgerOption func(*Ledger)

// WithLedgerClock substitutes the time source, used by tests.
func WithLedgerClock(clk Clock) LedgerOption {
	return func(l *Ledger) {
		if clk != nil {
			l.clock = clk
		}
	}
}

// SeatMap returns the anonymous view of an instance's seats.  An unknown
// instance yields ErrInstanceNotFound, never an empty map.
func (l *Ledger) SeatMap(ctx context.Context, instanceID uint64) (*SeatMap, error) {
	return l.seatMapFor(ctx, instanceID, 0)
}

// SeatMapForViewer returns the seat map annotated for one viewer,
// distinguishing "held by me" from "held by someone else".  This is what
// lets a customer resume a checkout in progress after navigating back.
func (l *Ledger) SeatMapForViewer(ctx context.Context, instanceID, viewerID uint64) (*SeatMap, error) {
	return l.seatMapFor(ctx, instanceID, viewerID)
}

func (l *Ledger) seatMapFor(ctx context.Context, instanceID, viewerID uint64) (*SeatMap, error) {
	inst, err := l.store.InstanceByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	seats, err := l.store.SeatsForInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	now := l.clock.Now()
	views := make([]SeatView, 0, len(seats))
	for i := range seats {
		s := &seats[i]
		v := SeatView{
			SeatLabel: s.SeatLabel,
			SeatType:  s.SeatType,
			Status:    s.EffectiveStatus(now),
		}
		if v.Status == model.SeatStatusHeld && viewerID != 0 && s.HeldBy != nil && *s.HeldBy == viewerID {
			v.HeldByMe = true
			v.HoldExpiresAt = s.HoldExpiresAt
		}
		views = append(views, v)
	}
	return &SeatMap{
		InstanceID: inst.ID,
		SeatRows:   inst.SeatRows,
		SeatCols:   inst.SeatCols,
		Seats:      views,
	}, nil
}
