package dashboard

import (
	"context"
	"time"
)

// Refresher is what the poller drives.
type Refresher interface {
	Refresh(ctx context.Context) (Snapshot, error)
}

// Poller refreshes the snapshot at a fixed interval until its context ends.
type Poller struct {
	refresher Refresher
	interval  time.Duration
	onTick    func(Snapshot, error)
}

// NewPoller builds a poller. onTick may be nil.
func NewPoller(refresher Refresher, interval time.Duration, onTick func(Snapshot, error)) *Poller {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if onTick == nil {
		onTick = func(Snapshot, error) {}
	}
	return &Poller{refresher: refresher, interval: interval, onTick: onTick}
}

// Run refreshes once immediately and then on every tick. It returns the
// context's error once cancelled; refresh failures do not stop it.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		snap, err := p.refresher.Refresh(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.onTick(snap, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
