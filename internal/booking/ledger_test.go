package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinetix/showtime-booking/internal/model"
)

func heldSeat(label string, userID uint64, heldAt time.Time, ttl time.Duration) model.ShowSeat {
	s := seat(label, model.SeatTypeNormal)
	s.Status = model.SeatStatusHeld
	uid := userID
	exp := heldAt.Add(ttl)
	s.HeldBy, s.HeldAt, s.HoldExpiresAt = &uid, &heldAt, &exp
	return s
}

func TestSeatMapReportsExpiredHoldsAsAvailable(t *testing.T) {
	epoch := testEpoch()
	fs := newFakeStore(testInstance,
		heldSeat("A1", 7, epoch, DefaultHoldTTL),
		seat("A2", model.SeatTypeNormal),
	)
	clk := newFakeClock(epoch.Add(DefaultHoldTTL + time.Minute))
	l := NewLedger(fs, WithLedgerClock(clk))

	m, err := l.SeatMap(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, m.Seats, 2)

	// The stored row still says HELD; the view must not.
	assert.Equal(t, model.SeatStatusHeld, fs.seatState("A1").Status)
	for _, v := range m.Seats {
		assert.Equal(t, model.SeatStatusAvailable, v.Status)
	}
}

func TestSeatMapHidesHolderDetails(t *testing.T) {
	epoch := testEpoch()
	fs := newFakeStore(testInstance, heldSeat("A1", 7, epoch, DefaultHoldTTL))
	clk := newFakeClock(epoch.Add(time.Minute))
	l := NewLedger(fs, WithLedgerClock(clk))

	m, err := l.SeatMap(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, m.Seats, 1)
	assert.Equal(t, model.SeatStatusHeld, m.Seats[0].Status)
	assert.False(t, m.Seats[0].HeldByMe)
	assert.Nil(t, m.Seats[0].HoldExpiresAt)
}

func TestSeatMapForViewerAnnotatesOwnHolds(t *testing.T) {
	epoch := testEpoch()
	fs := newFakeStore(testInstance,
		heldSeat("A1", 42, epoch, DefaultHoldTTL),
		heldSeat("A2", 7, epoch, DefaultHoldTTL),
	)
	clk := newFakeClock(epoch.Add(time.Minute))
	l := NewLedger(fs, WithLedgerClock(clk))

	m, err := l.SeatMapForViewer(context.Background(), 1, 42)
	require.NoError(t, err)
	require.Len(t, m.Seats, 2)

	byLabel := make(map[string]SeatView, len(m.Seats))
	for _, v := range m.Seats {
		byLabel[v.SeatLabel] = v
	}
	mine := byLabel["A1"]
	assert.True(t, mine.HeldByMe)
	require.NotNil(t, mine.HoldExpiresAt)
	assert.Equal(t, epoch.Add(DefaultHoldTTL), *mine.HoldExpiresAt)

	other := byLabel["A2"]
	assert.Equal(t, model.SeatStatusHeld, other.Status)
	assert.False(t, other.HeldByMe)
	assert.Nil(t, other.HoldExpiresAt)
}

func TestSeatMapCarriesGridDimensions(t *testing.T) {
	fs := newFakeStore(testInstance, seat("A1", model.SeatTypeNormal))
	l := NewLedger(fs, WithLedgerClock(newFakeClock(testEpoch())))

	m, err := l.SeatMap(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.InstanceID)
	assert.Equal(t, uint32(6), m.SeatRows)
	assert.Equal(t, uint32(8), m.SeatCols)
}

func TestSeatMapUnknownInstance(t *testing.T) {
	fs := newFakeStore(testInstance, seat("A1", model.SeatTypeNormal))
	l := NewLedger(fs)

	_, err := l.SeatMap(context.Background(), 99)
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}
