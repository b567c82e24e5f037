// Package poller keeps a surface's view consistent with a record store that other surfaces
// (the API, the CLI, other processes) write to.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/kyleyee20/aevum/core"
	"github.com/kyleyee20/aevum/core/assignment"
)

// DefaultInterval is the fallback polling period.
const DefaultInterval = time.Second

// Refresher is the part of the engine the poller drives.
type Refresher interface {
	Refresh(ctx context.Context) (assignment.Transition, error)
}

// Poller re-reads the store on every tick and, when a change bus is given, as soon as another
// surface commits a change. Each tick is one Refresh: a sign-in reloads the view, a sign-out
// clears it.
type Poller struct {
	mu       sync.Mutex
	engine   Refresher
	bus      core.ChangeBus
	interval time.Duration
	log      core.Logger

	// OnTransition, when set, is called after every sign-in or sign-out the poller observes.
	OnTransition func(assignment.Transition)

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	lastErr string
}

func New(engine Refresher, bus core.ChangeBus, interval time.Duration, log core.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = core.Discard
	}
	return &Poller{engine: engine, bus: bus, interval: interval, log: log}
}

// Start runs one refresh immediately and then polls in the background until Stop is called or
// ctx is done. Starting a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	var changes <-chan core.Change
	if p.bus != nil {
		var err error
		if changes, err = p.bus.Subscribe(runCtx); err != nil {
			// polling alone still converges
			p.log.Warn("poller: change subscription failed, polling only", "error", err)
			changes = nil
		}
	}

	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.run(runCtx, cancel, changes, p.stopCh, p.doneCh)
	return nil
}

// Stop stops the poller and waits for the loop to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (p *Poller) run(ctx context.Context, cancel context.CancelFunc, changes <-chan core.Change, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	defer cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			p.tick(ctx)
		case ch, ok := <-changes:
			if !ok {
				changes = nil // bus gone; keep polling
				continue
			}
			if ch.Source == "poller" {
				continue
			}
			p.tick(ctx)
		}
	}
}

// tick runs one refresh. The same error is logged once until the next success.
func (p *Poller) tick(ctx context.Context) {
	tr, err := p.engine.Refresh(ctx)
	if err != nil {
		if msg := err.Error(); msg != p.lastErr {
			p.lastErr = msg
			p.log.Error("poller: refresh failed", "error", err)
		}
		return
	}
	p.lastErr = ""
	if tr != assignment.Unchanged && p.OnTransition != nil {
		p.OnTransition(tr)
	}
}
