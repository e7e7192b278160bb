package store

import (
	"context"
	"time"
)

// Ticker drives Store.Tick from wall-clock deltas measured between ticks.
// There is no fixed timestep: a late tick advances the clock by the full
// elapsed time.
type Ticker struct {
	Store    *Store
	Interval time.Duration
}

// Run blocks until ctx is cancelled.
func (t *Ticker) Run(ctx context.Context) error {
	interval := t.Interval
	if interval <= 0 {
		interval = time.Second / 60
	}
	tk := time.NewTicker(interval)
	defer tk.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-tk.C:
			dt := now.Sub(last).Seconds()
			last = now
			t.Store.Tick(dt)
		}
	}
}
