package booking

import (
	"context"
	"log"
	"time"
)

// DefaultSweepInterval is how often the background sweep resets expired
// holds when no interval is configured.
const DefaultSweepInterval = time.Minute

// Sweeper periodically resets expired holds back to available at the
// storage level.  It is an optimization that bounds how stale the stored
// rows can get: correctness never depends on it running, because every
// read and every hold attempt applies lazy expiry on its own.
type Sweeper struct {
	store    Store
	clock    Clock
	interval time.Duration
}

// NewSweeper constructs a Sweeper.  A non-positive interval falls back to
// DefaultSweepInterval.
func NewSweeper(store Store, interval time.Duration, opts ...SweeperOption) *Sweeper {
	if store == nil {
		panic("nil store passed to NewSweeper")
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	s := &Sweeper{store: store, clock: SystemClock{}, interval: interval}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SweeperOption customises a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperClock substitutes the time source, used by tests.
func WithSweeperClock(clk Clock) SweeperOption {
	return func(s *Sweeper) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// Run sweeps on every tick until ctx is cancelled.  Sweep failures are
// logged and skipped; the next tick simply tries again.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce performs a single sweep pass and reports how many holds were
// physically reset.
func (s *Sweeper) SweepOnce(ctx context.Context) int64 {
	n, err := s.store.ReleaseExpired(ctx, s.clock.Now())
	if err != nil {
		log.Printf("sweeper: release expired holds failed: %v", err)
		return 0
	}
	if n > 0 {
		log.Printf("sweeper: released %d expired holds", n)
	}
	return n
}
