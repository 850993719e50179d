package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinetix/showtime-booking/internal/model"
)

var testInstance = &model.ShowtimeInstance{
	ID:         1,
	ShowtimeID: 10,
	Room:       "R1",
	ShowDate:   "2026-09-01",
	StartTime:  "20:00",
	SeatRows:   6,
	SeatCols:   8,
}

func testEpoch() time.Time {
	return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
}

func newTestCoordinator(fs *fakeStore, clk Clock, opts ...Option) *Coordinator {
	return NewCoordinator(fs, append([]Option{WithClock(clk)}, opts...)...)
}

func TestHoldGrantsWholeBatch(t *testing.T) {
	fs := newFakeStore(testInstance, seat("A1", model.SeatTypeNormal), seat("A2", model.SeatTypeNormal))
	clk := newFakeClock(testEpoch())
	c := newTestCoordinator(fs, clk)

	res, err := c.Hold(context.Background(), 1, 42, []string{"A1", "A2"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A1", "A2"}, res.SeatLabels)
	assert.Equal(t, testEpoch().Add(DefaultHoldTTL), res.ExpiresAt)

	for _, l := range []string{"A1", "A2"} {
		s := fs.seatState(l)
		assert.Equal(t, model.SeatStatusHeld, s.Status)
		require.NotNil(t, s.HeldBy)
		assert.Equal(t, uint64(42), *s.HeldBy)
	}
}

func TestHoldAllOrNothing(t *testing.T) {
	fs := newFakeStore(testInstance, seat("B1", model.SeatTypeNormal), seat("B2", model.SeatTypeNormal))
	clk := newFakeClock(testEpoch())
	c := newTestCoordinator(fs, clk)

	_, err := c.Hold(context.Background(), 1, 7, []string{"B2"})
	require.NoError(t, err)

	_, err = c.Hold(context.Background(), 1, 42, []string{"B1", "B2"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"B2"}, conflict.Rejected)

	// The grantable seat must have been rolled back with the batch.
	assert.Equal(t, model.SeatStatusAvailable, fs.seatState("B1").Status)
}

func TestHoldSecondUserConflicts(t *testing.T) {
	fs := newFakeStore(testInstance, seat("A1", model.SeatTypeNormal))
	clk := newFakeClock(testEpoch())
	c := newTestCoordinator(fs, clk)

	_, err := c.Hold(context.Background(), 1, 1, []string{"A1"})
	require.NoError(t, err)

	_, err = c.Hold(context.Background(), 1, 2, []string{"A1"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"A1"}, conflict.Rejected)

	s := fs.seatState("A1")
	require.NotNil(t, s.HeldBy)
	assert.Equal(t, uint64(1), *s.HeldBy)
}

func TestHoldExpandsCouplePartner(t *testing.T) {
	fs := newFakeStore(testInstance,
		seat("F6", model.SeatTypeCouple),
		seat("F7", model.SeatTypeCouple),
	)
	clk := newFakeClock(testEpoch())
	c := newTestCoordinator(fs, clk)

	res, err := c.Hold(context.Background(), 1, 42, []string{"F6"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"F6", "F7"}, res.SeatLabels)
	assert.Equal(t, model.SeatStatusHeld, fs.seatState("F6").Status)
	assert.Equal(t, model.SeatStatusHeld, fs.seatState("F7").Status)
}

func TestHoldCouplePartnerUnavailableFailsBoth(t *testing.T) {
	fs := newFakeStore(testInstance,
		seat("F6", model.SeatTypeCouple),
		seat("F7", model.SeatTypeCouple),
	)
	clk := newFakeClock(testEpoch())
	c := newTestCoordinator(fs, clk)

	_, err := c.Hold(context.Background(), 1, 7, []string{"F6"})
	require.NoError(t, err)

	_, err = c.Hold(context.Background(), 1, 42, []string{"F7"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	// User 7's pair is untouched.
	for _, l := range []string{"F6", "F7"} {
		s := fs.seatState(l)
		require.NotNil(t, s.HeldBy)
		assert.Equal(t, uint64(7), *s.HeldBy)
	}
}

func TestHoldMixedSeatTypesRejected(t *testing.T) {
	fs := newFakeStore(testInstance,
		seat("A1", model.SeatTypeNormal),
		seat("B1", model.SeatTypeVIP),
	)
	c := newTestCoordinator(fs, newFakeClock(testEpoch()))

	_, err := c.Hold(context.Background(), 1, 42, []string{"A1", "B1"})
	assert.ErrorIs(t, err, ErrMixedSeatTypes)
	assert.Equal(t, model.SeatStatusAvailable, fs.seatState("A1").Status)
}

func TestHoldSeatLimitCountsExpandedPairs(t *testing.T) {
	fs := newFakeStore(testInstance,
		seat("F0", model.SeatTypeCouple),
		seat("F1", model.SeatTypeCouple),
		seat("F2", model.SeatTypeCouple),
		seat("F3", model.SeatTypeCouple),
	)
	c := newTestCoordinator(fs, newFakeClock(testEpoch()), WithMaxSeats(3))

	// Two couple seats expand to four, over the limit of three.
	_, err := c.Hold(context.Background(), 1, 42, []string{"F0", "F2"})
	assert.ErrorIs(t, err, ErrTooManySeats)
}

func TestReholdResetsDeadline(t *testing.T) {
	fs := newFakeStore(testInstance, seat("A1", model.SeatTypeNormal))
	clk := newFakeClock(testEpoch())
	c := newTestCoordinator(fs, clk)

	_, err := c.Hold(context.Background(), 1, 42, []string{"A1"})
	require.NoError(t, err)

	clk.Advance(5 * time.Minute)
	res, err := c.Hold(context.Background(), 1, 42, []string{"A1"})
	require.NoError(t, err)
	assert.Equal(t, testEpoch().Add(5*time.Minute+DefaultHoldTTL), res.ExpiresAt)

	s := fs.seatState("A1")
	require.NotNil(t, s.HoldExpiresAt)
	assert.Equal(t, res.ExpiresAt, *s.HoldExpiresAt)
}

func TestHoldGrantsOverExpiredForeignHold(t *testing.T) {
	fs := newFakeStore(testInstance, seat("A1", model.SeatTypeNormal))
	clk := newFakeClock(testEpoch())
	c := newTestCoordinator(fs, clk)

	_, err := c.Hold(context.Background(), 1, 1, []string{"A1"})
	require.NoError(t, err)

	// One minute past the deadline the seat is grantable again even
	// though no sweep has run.
	clk.Advance(DefaultHoldTTL + time.Minute)
	_, err = c.Hold(context.Background(), 1, 2, []string{"A1"})
	require.NoError(t, err)

	s := fs.seatState("A1")
	require.NotNil(t, s.HeldBy)
	assert.Equal(t, uint64(2), *s.HeldBy)
}

func TestHoldUnknownSeats(t *testing.T) {
	fs := newFakeStore(testInstance, seat("A1", model.SeatTypeNormal))
	c := newTestCoordinator(fs, newFakeClock(testEpoch()))

	_, err := c.Hold(context.Background(), 1, 42, []string{"A1", "Z99"})
	var nf *SeatsNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{"Z99"}, nf.Labels)
}

func TestHoldValidation(t *testing.T) {
	fs := newFakeStore(testInstance, seat("A1", model.SeatTypeNormal))
	c := newTestCoordinator(fs, newFakeClock(testEpoch()))
	ctx := context.Background()

	_, err := c.Hold(ctx, 99, 42, []string{"A1"})
	assert.ErrorIs(t, err, ErrInstanceNotFound)

	_, err = c.Hold(ctx, 1, 42, nil)
	assert.ErrorIs(t, err, ErrNoSeats)

	_, err = c.Hold(ctx, 1, 42, []string{"??"})
	var nf *SeatsNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestHoldDeduplicatesAndCanonicalizesLabels(t *testing.T) {
	fs := newFakeStore(testInstance, seat("A1", model.SeatTypeNormal))
	c := newTestCoordinator(fs, newFakeClock(testEpoch()))

	res, err := c.Hold(context.Background(), 1, 42, []string{"a1", "A1", " A1 "})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, res.SeatLabels)
}

func TestReleaseOwnHolds(t *testing.T) {
	fs := newFakeStore(testInstance, seat("A1", model.SeatTypeNormal), seat("A2", model.SeatTypeNormal))
	clk := newFakeClock(testEpoch())
	c := newTestCoordinator(fs, clk)
	ctx := context.Background()

	_, err := c.Hold(ctx, 1, 42, []string{"A1", "A2"})
	require.NoError(t, err)

	released, err := c.Release(ctx, 1, 42, []string{"A1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, released)
	assert.Equal(t, model.SeatStatusAvailable, fs.seatState("A1").Status)
	assert.Equal(t, model.SeatStatusHeld, fs.seatState("A2").Status)
}

func TestReleaseSkipsForeignHolds(t *testing.T) {
	fs := newFakeStore(testInstance, seat("A1", model.SeatTypeNormal))
	c := newTestCoordinator(fs, newFakeClock(testEpoch()))
	ctx := context.Background()

	_, err := c.Hold(ctx, 1, 7, []string{"A1"})
	require.NoError(t, err)

	released, err := c.Release(ctx, 1, 42, []string{"A1"})
	require.NoError(t, err)
	assert.Empty(t, released)
	assert.Equal(t, model.SeatStatusHeld, fs.seatState("A1").Status)
}

func TestReleaseEmptySelectionReleasesAll(t *testing.T) {
	fs := newFakeStore(testInstance,
		seat("A1", model.SeatTypeNormal),
		seat("A2", model.SeatTypeNormal),
		seat("A3", model.SeatTypeNormal),
	)
	c := newTestCoordinator(fs, newFakeClock(testEpoch()))
	ctx := context.Background()

	_, err := c.Hold(ctx, 1, 42, []string{"A1", "A2"})
	require.NoError(t, err)
	_, err = c.Hold(ctx, 1, 7, []string{"A3"})
	require.NoError(t, err)

	released, err := c.Release(ctx, 1, 42, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A1", "A2"}, released)
	// The other user's hold survives.
	assert.Equal(t, model.SeatStatusHeld, fs.seatState("A3").Status)
}

func TestReleaseCouplePairTogether(t *testing.T) {
	fs := newFakeStore(testInstance,
		seat("F6", model.SeatTypeCouple),
		seat("F7", model.SeatTypeCouple),
	)
	c := newTestCoordinator(fs, newFakeClock(testEpoch()))
	ctx := context.Background()

	_, err := c.Hold(ctx, 1, 42, []string{"F6"})
	require.NoError(t, err)

	released, err := c.Release(ctx, 1, 42, []string{"F6"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"F6", "F7"}, released)
}

func TestFinalizeIssuesTicketPerSeat(t *testing.T) {
	fs := newFakeStore(testInstance, seat("D4", model.SeatTypeNormal), seat("D5", model.SeatTypeNormal))
	c := newTestCoordinator(fs, newFakeClock(testEpoch()))
	ctx := context.Background()

	_, err := c.Hold(ctx, 1, 42, []string{"D4", "D5"})
	require.NoError(t, err)

	res, err := c.Finalize(ctx, 1, []string{"D4", "D5"}, "ord-1001")
	require.NoError(t, err)
	assert.Equal(t, "ord-1001", res.OrderRef)
	require.Len(t, res.Tickets, 2)
	assert.NotEqual(t, res.Tickets[0].TicketCode, res.Tickets[1].TicketCode)

	for _, l := range []string{"D4", "D5"} {
		s := fs.seatState(l)
		assert.Equal(t, model.SeatStatusSold, s.Status)
		require.NotNil(t, s.OrderRef)
		assert.Equal(t, "ord-1001", *s.OrderRef)
		assert.Nil(t, s.HeldBy)
	}
}

func TestFinalizeWinsRaceAgainstExpiry(t *testing.T) {
	fs := newFakeStore(testInstance, seat("D4", model.SeatTypeNormal))
	clk := newFakeClock(testEpoch())
	c := newTestCoordinator(fs, clk)
	ctx := context.Background()

	_, err := c.Hold(ctx, 1, 42, []string{"D4"})
	require.NoError(t, err)

	// Payment confirmation lands two minutes after the hold lapsed.
	clk.Advance(DefaultHoldTTL + 2*time.Minute)
	res, err := c.Finalize(ctx, 1, []string{"D4"}, "ord-1001")
	require.NoError(t, err)
	assert.Len(t, res.Tickets, 1)
	assert.Equal(t, model.SeatStatusSold, fs.seatState("D4").Status)
}

func TestHoldAfterSaleConflicts(t *testing.T) {
	fs := newFakeStore(testInstance, seat("D4", model.SeatTypeNormal))
	c := newTestCoordinator(fs, newFakeClock(testEpoch()))
	ctx := context.Background()

	_, err := c.Finalize(ctx, 1, []string{"D4"}, "ord-1001")
	require.NoError(t, err)

	_, err = c.Hold(ctx, 1, 42, []string{"D4"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"D4"}, conflict.Rejected)
}

func TestFinalizeRejectsSecondOrder(t *testing.T) {
	fs := newFakeStore(testInstance, seat("D4", model.SeatTypeNormal))
	c := newTestCoordinator(fs, newFakeClock(testEpoch()))
	ctx := context.Background()

	_, err := c.Finalize(ctx, 1, []string{"D4"}, "ord-1001")
	require.NoError(t, err)

	_, err = c.Finalize(ctx, 1, []string{"D4"}, "ord-2002")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	s := fs.seatState("D4")
	require.NotNil(t, s.OrderRef)
	assert.Equal(t, "ord-1001", *s.OrderRef)
}

func TestFinalizeSameOrderIsIdempotent(t *testing.T) {
	fs := newFakeStore(testInstance, seat("D4", model.SeatTypeNormal))
	c := newTestCoordinator(fs, newFakeClock(testEpoch()))
	ctx := context.Background()

	_, err := c.Finalize(ctx, 1, []string{"D4"}, "ord-1001")
	require.NoError(t, err)

	res, err := c.Finalize(ctx, 1, []string{"D4"}, "ord-1001")
	require.NoError(t, err)
	assert.Len(t, res.Tickets, 1)
}

func TestFinalizeRequiresOrderRef(t *testing.T) {
	fs := newFakeStore(testInstance, seat("D4", model.SeatTypeNormal))
	c := newTestCoordinator(fs, newFakeClock(testEpoch()))

	_, err := c.Finalize(context.Background(), 1, []string{"D4"}, "")
	assert.True(t, errors.Is(err, ErrOrderRefRequired))
}

func TestFinalizeExpandsCouplePair(t *testing.T) {
	fs := newFakeStore(testInstance,
		seat("F6", model.SeatTypeCouple),
		seat("F7", model.SeatTypeCouple),
	)
	c := newTestCoordinator(fs, newFakeClock(testEpoch()))
	ctx := context.Background()

	_, err := c.Hold(ctx, 1, 42, []string{"F6"})
	require.NoError(t, err)

	res, err := c.Finalize(ctx, 1, []string{"F6"}, "ord-1001")
	require.NoError(t, err)
	require.Len(t, res.Tickets, 2)
	assert.Equal(t, model.SeatStatusSold, fs.seatState("F6").Status)
	assert.Equal(t, model.SeatStatusSold, fs.seatState("F7").Status)
}
