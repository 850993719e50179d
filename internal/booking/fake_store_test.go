package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cinetix/showtime-booking/internal/model"
)

// fakeClock is a settable time source for driving expiry in tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeStore is an in-memory Store whose Mark* methods reproduce the
// conditional-update semantics of the SQL implementation: each transition
// is decided against current state and returns false when refused.  InTx
// snapshots the seats and restores them when fn fails, so all-or-nothing
// behavior is observable.
type fakeStore struct {
	mu    sync.Mutex
	inst  *model.ShowtimeInstance
	seats map[string]*model.ShowSeat
}

func newFakeStore(inst *model.ShowtimeInstance, seats ...model.ShowSeat) *fakeStore {
	fs := &fakeStore{inst: inst, seats: make(map[string]*model.ShowSeat, len(seats))}
	for i := range seats {
		s := seats[i]
		fs.seats[s.SeatLabel] = &s
	}
	return fs
}

func seat(label, seatType string) model.ShowSeat {
	row, col, _ := model.ParseSeatLabel(label)
	return model.ShowSeat{
		InstanceID: 1,
		SeatLabel:  label,
		RowLabel:   row,
		ColNumber:  col,
		SeatType:   seatType,
		Status:     model.SeatStatusAvailable,
	}
}

func (fs *fakeStore) seatState(label string) model.ShowSeat {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return *fs.seats[label]
}

func (fs *fakeStore) InstanceByID(ctx context.Context, id uint64) (*model.ShowtimeInstance, error) {
	if fs.inst == nil || fs.inst.ID != id {
		return nil, ErrInstanceNotFound
	}
	cp := *fs.inst
	return &cp, nil
}

func (fs *fakeStore) SeatsForInstance(ctx context.Context, instanceID uint64) ([]model.ShowSeat, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]model.ShowSeat, 0, len(fs.seats))
	for _, s := range fs.seats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RowLabel != out[j].RowLabel {
			if len(out[i].RowLabel) != len(out[j].RowLabel) {
				return len(out[i].RowLabel) < len(out[j].RowLabel)
			}
			return out[i].RowLabel < out[j].RowLabel
		}
		return out[i].ColNumber < out[j].ColNumber
	})
	return out, nil
}

func (fs *fakeStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	snapshot := make(map[string]*model.ShowSeat, len(fs.seats))
	for k, v := range fs.seats {
		cp := *v
		snapshot[k] = &cp
	}
	if err := fn(&fakeTx{fs: fs}); err != nil {
		fs.seats = snapshot
		return err
	}
	return nil
}

func (fs *fakeStore) ReleaseExpired(ctx context.Context, now time.Time) (int64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var n int64
	for _, s := range fs.seats {
		if s.Status == model.SeatStatusHeld && s.HoldExpiresAt != nil && !s.HoldExpiresAt.After(now) {
			s.Status = model.SeatStatusAvailable
			s.HeldBy, s.HeldAt, s.HoldExpiresAt = nil, nil, nil
			n++
		}
	}
	return n, nil
}

// fakeTx operates on the store's seats directly; the caller holds the
// store lock for the duration of InTx.
type fakeTx struct {
	fs *fakeStore
}

func (t *fakeTx) SeatsByLabels(ctx context.Context, instanceID uint64, labels []string) ([]model.ShowSeat, error) {
	var out []model.ShowSeat
	for _, l := range labels {
		if s, ok := t.fs.seats[l]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (t *fakeTx) MarkHeld(ctx context.Context, instanceID uint64, label string, userID uint64, now, expiresAt time.Time) (bool, error) {
	s, ok := t.fs.seats[label]
	if !ok {
		return false, nil
	}
	grantable := s.Status == model.SeatStatusAvailable ||
		(s.Status == model.SeatStatusHeld &&
			((s.HeldBy != nil && *s.HeldBy == userID) ||
				(s.HoldExpiresAt != nil && !s.HoldExpiresAt.After(now))))
	if !grantable {
		return false, nil
	}
	s.Status = model.SeatStatusHeld
	uid := userID
	n, e := now, expiresAt
	s.HeldBy, s.HeldAt, s.HoldExpiresAt = &uid, &n, &e
	return true, nil
}

func (t *fakeTx) MarkReleased(ctx context.Context, instanceID uint64, label string, userID uint64) (bool, error) {
	s, ok := t.fs.seats[label]
	if !ok || s.Status != model.SeatStatusHeld || s.HeldBy == nil || *s.HeldBy != userID {
		return false, nil
	}
	s.Status = model.SeatStatusAvailable
	s.HeldBy, s.HeldAt, s.HoldExpiresAt = nil, nil, nil
	return true, nil
}

func (t *fakeTx) MarkSold(ctx context.Context, instanceID uint64, label string, orderRef string, now time.Time) (bool, error) {
	s, ok := t.fs.seats[label]
	if !ok || s.Status == model.SeatStatusMaintenance {
		return false, nil
	}
	if s.Status == model.SeatStatusSold {
		return s.OrderRef != nil && *s.OrderRef == orderRef, nil
	}
	s.Status = model.SeatStatusSold
	ref := orderRef
	s.OrderRef = &ref
	s.HeldBy, s.HeldAt, s.HoldExpiresAt = nil, nil, nil
	return true, nil
}

func (t *fakeTx) HeldLabelsByUser(ctx context.Context, instanceID, userID uint64) ([]string, error) {
	var labels []string
	for _, s := range t.fs.seats {
		if s.Status == model.SeatStatusHeld && s.HeldBy != nil && *s.HeldBy == userID {
			labels = append(labels, s.SeatLabel)
		}
	}
	sort.Strings(labels)
	return labels, nil
}
