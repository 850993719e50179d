package booking

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cinetix/showtime-booking/internal/model"
)

// Hold and checkout defaults.  The hold window is the time a customer has
// to reach payment before the seats return to the pool; the seat limit
// mirrors the client's per-checkout cap and is enforced again here so a
// misbehaving client cannot bypass it.
const (
	DefaultHoldTTL  = 8 * time.Minute
	DefaultMaxSeats = 8
)

// Coordinator is the only component permitted to change a seat's status.
// It enforces one-hold-per-seat, all-or-nothing batches, couple-seat
// pairing and the single-seat-type business rule on top of the Store's
// conditional update primitives.
type Coordinator struct {
	store    Store
	clock    Clock
	holdTTL  time.Duration
	maxSeats int
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithClock substitutes the time source, used by tests to drive expiry.
func WithClock(clk Clock) Option {
	return func(c *Coordinator) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithHoldTTL overrides the hold window.
func WithHoldTTL(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.holdTTL = d
		}
	}
}

// WithMaxSeats overrides the per-checkout seat limit.
func WithMaxSeats(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxSeats = n
		}
	}
}

// NewCoordinator constructs a Coordinator bound to the given store.
func NewCoordinator(store Store, opts ...Option) *Coordinator {
	if store == nil {
		panic("nil store passed to NewCoordinator")
	}
	c := &Coordinator{
		store:    store,
		clock:    SystemClock{},
		holdTTL:  DefaultHoldTTL,
		maxSeats: DefaultMaxSeats,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HoldResult reports a granted hold: the full seat set after couple-pair
// expansion and the absolute deadline shared by every seat in the batch.
type HoldResult struct {
	SeatLabels []string  `json:"seat_labels"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Ticket is one issued seat of a finalized order.
type Ticket struct {
	SeatLabel  string `json:"seat_label"`
	TicketCode string `json:"ticket_code"`
}

// FinalizeResult reports a completed finalize: the order reference and
// one ticket per sold seat.
type FinalizeResult struct {
	OrderRef string   `json:"order_ref"`
	Tickets  []Ticket `json:"tickets"`
}

// Hold places a time-bounded hold on the requested seats for userID.
// Couple seats are expanded to their fixed partner, the batch must stay
// within the seat limit and share one seat type, and every seat must be
// grantable; otherwise nothing in the batch is held.  Re-holding seats
// the user already holds succeeds and resets the deadline.
func (c *Coordinator) Hold(ctx context.Context, instanceID, userID uint64, seatLabels []string) (*HoldResult, error) {
	labels, badErr := normalizeLabels(seatLabels)
	if badErr != nil {
		return nil, badErr
	}
	if len(labels) == 0 {
		return nil, ErrNoSeats
	}
	if _, err := c.store.InstanceByID(ctx, instanceID); err != nil {
		return nil, err
	}
	var result *HoldResult
	err := c.store.InTx(ctx, func(tx Tx) error {
		seats, err := loadAndExpand(ctx, tx, instanceID, labels)
		if err != nil {
			return err
		}
		if len(seats) > c.maxSeats {
			return ErrTooManySeats
		}
		if !singleSeatType(seats) {
			return ErrMixedSeatTypes
		}
		now := c.clock.Now()
		expiresAt := now.Add(c.holdTTL)
		var rejected []string
		for i := range seats {
			ok, err := tx.MarkHeld(ctx, instanceID, seats[i].SeatLabel, userID, now, expiresAt)
			if err != nil {
				return err
			}
			if !ok {
				rejected = append(rejected, seats[i].SeatLabel)
			}
		}
		if len(rejected) > 0 {
			// Returning the error rolls back every hold granted above:
			// a checkout is held completely or not at all.
			return &ConflictError{Rejected: rejected}
		}
		if err := verifyPairs(ctx, tx, instanceID, seats); err != nil {
			return err
		}
		result = &HoldResult{SeatLabels: labelsOf(seats), ExpiresAt: expiresAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Release returns the given seats to the pool when they are held by
// userID.  Seats held by someone else or already available are skipped
// without error.  An empty selection releases every seat the user holds
// on the instance.  Couple seats release together with their partner.
func (c *Coordinator) Release(ctx context.Context, instanceID, userID uint64, seatLabels []string) ([]string, error) {
	labels, badErr := normalizeLabels(seatLabels)
	if badErr != nil {
		return nil, badErr
	}
	if _, err := c.store.InstanceByID(ctx, instanceID); err != nil {
		return nil, err
	}
	var released []string
	err := c.store.InTx(ctx, func(tx Tx) error {
		toRelease := labels
		if len(toRelease) == 0 {
			held, err := tx.HeldLabelsByUser(ctx, instanceID, userID)
			if err != nil {
				return err
			}
			if len(held) == 0 {
				return nil
			}
			toRelease = held
		}
		seats, err := loadAndExpand(ctx, tx, instanceID, toRelease)
		if err != nil {
			return err
		}
		for i := range seats {
			ok, err := tx.MarkReleased(ctx, instanceID, seats[i].SeatLabel, userID)
			if err != nil {
				return err
			}
			if ok {
				released = append(released, seats[i].SeatLabel)
			}
		}
		return verifyPairs(ctx, tx, instanceID, seats)
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// Finalize transitions the given seats to sold under orderRef after a
// confirmed payment.  It does not check hold expiry: a successful payment
// wins a race against the timer, and a seat whose hold already lapsed is
// sold tolerantly.  It fails only when a seat is already sold under a
// different order, which keeps two racing finalizes from both winning.
func (c *Coordinator) Finalize(ctx context.Context, instanceID uint64, seatLabels []string, orderRef string) (*FinalizeResult, error) {
	if orderRef == "" {
		return nil, ErrOrderRefRequired
	}
	labels, badErr := normalizeLabels(seatLabels)
	if badErr != nil {
		return nil, badErr
	}
	if len(labels) == 0 {
		return nil, ErrNoSeats
	}
	if _, err := c.store.InstanceByID(ctx, instanceID); err != nil {
		return nil, err
	}
	var result *FinalizeResult
	err := c.store.InTx(ctx, func(tx Tx) error {
		seats, err := loadAndExpand(ctx, tx, instanceID, labels)
		if err != nil {
			return err
		}
		now := c.clock.Now()
		var rejected []string
		for i := range seats {
			ok, err := tx.MarkSold(ctx, instanceID, seats[i].SeatLabel, orderRef, now)
			if err != nil {
				return err
			}
			if !ok {
				rejected = append(rejected, seats[i].SeatLabel)
			}
		}
		if len(rejected) > 0 {
			return &ConflictError{Rejected: rejected}
		}
		if err := verifyPairs(ctx, tx, instanceID, seats); err != nil {
			return err
		}
		tickets := make([]Ticket, 0, len(seats))
		for i := range seats {
			tickets = append(tickets, Ticket{
				SeatLabel:  seats[i].SeatLabel,
				TicketCode: uuid.NewString(),
			})
		}
		result = &FinalizeResult{OrderRef: orderRef, Tickets: tickets}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// normalizeLabels canonicalizes and deduplicates seat labels.  Labels
// that do not parse are reported as unknown seats.
func normalizeLabels(labels []string) ([]string, error) {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	var bad []string
	for _, raw := range labels {
		row, col, ok := model.ParseSeatLabel(raw)
		if !ok {
			bad = append(bad, raw)
			continue
		}
		canonical := rowColLabel(row, col)
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	if len(bad) > 0 {
		return nil, &SeatsNotFoundError{Labels: bad}
	}
	return out, nil
}

// loadAndExpand resolves labels to seat records and pulls in the fixed
// partner of every couple seat the caller named only half of, mirroring
// the client's own pairing expansion.  Unknown labels fail with
// SeatsNotFoundError; a couple seat whose partner is missing from the
// layout entirely is a pairing violation.
func loadAndExpand(ctx context.Context, tx Tx, instanceID uint64, labels []string) ([]model.ShowSeat, error) {
	seats, err := tx.SeatsByLabels(ctx, instanceID, labels)
	if err != nil {
		return nil, err
	}
	byLabel := make(map[string]model.ShowSeat, len(seats))
	for _, s := range seats {
		byLabel[s.SeatLabel] = s
	}
	var unknown []string
	for _, l := range labels {
		if _, ok := byLabel[l]; !ok {
			unknown = append(unknown, l)
		}
	}
	if len(unknown) > 0 {
		return nil, &SeatsNotFoundError{Labels: unknown}
	}
	var partnerLabels []string
	for _, s := range seats {
		if s.SeatType != model.SeatTypeCouple {
			continue
		}
		partner, ok := model.PartnerLabel(s.SeatLabel)
		if !ok {
			return nil, ErrPairingViolation
		}
		if _, have := byLabel[partner]; !have {
			partnerLabels = append(partnerLabels, partner)
		}
	}
	if len(partnerLabels) > 0 {
		partners, err := tx.SeatsByLabels(ctx, instanceID, partnerLabels)
		if err != nil {
			return nil, err
		}
		// A couple seat with no partner row in the grid means the layout
		// itself is broken; refuse rather than commit a split pair.
		if len(partners) != len(partnerLabels) {
			return nil, ErrPairingViolation
		}
		for _, p := range partners {
			byLabel[p.SeatLabel] = p
			seats = append(seats, p)
		}
	}
	return seats, nil
}

// verifyPairs re-reads every couple pair touched by the batch and
// confirms both members ended up in the same state under the same holder
// and order.  Any split aborts the transaction.
func verifyPairs(ctx context.Context, tx Tx, instanceID uint64, seats []model.ShowSeat) error {
	var coupleLabels []string
	for _, s := range seats {
		if s.SeatType == model.SeatTypeCouple {
			coupleLabels = append(coupleLabels, s.SeatLabel)
		}
	}
	if len(coupleLabels) == 0 {
		return nil
	}
	fresh, err := tx.SeatsByLabels(ctx, instanceID, coupleLabels)
	if err != nil {
		return err
	}
	byLabel := make(map[string]model.ShowSeat, len(fresh))
	for _, s := range fresh {
		byLabel[s.SeatLabel] = s
	}
	for _, s := range fresh {
		partner, ok := model.PartnerLabel(s.SeatLabel)
		if !ok {
			return ErrPairingViolation
		}
		p, have := byLabel[partner]
		if !have {
			return ErrPairingViolation
		}
		if s.Status != p.Status || !equalUint64Ptr(s.HeldBy, p.HeldBy) || !equalStringPtr(s.OrderRef, p.OrderRef) {
			return ErrPairingViolation
		}
	}
	return nil
}

func singleSeatType(seats []model.ShowSeat) bool {
	for i := 1; i < len(seats); i++ {
		if seats[i].SeatType != seats[0].SeatType {
			return false
		}
	}
	return true
}

func labelsOf(seats []model.ShowSeat) []string {
	out := make([]string, 0, len(seats))
	for _, s := range seats {
		out = append(out, s.SeatLabel)
	}
	return out
}

func rowColLabel(row string, col uint32) string {
	return row + strconv.FormatUint(uint64(col), 10)
}

func equalUint64Ptr(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
