package view

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aquamarinepk/aqm"
)

var ErrActionInFlight = errors.New("another action is in progress")

// ViewStore is the capability shared by every view: it holds the last
// consistent snapshot and can re-read server truth.
type ViewStore interface {
	// Name identifies the view, e.g. "mesa-4" or "station-cocina".
	Name() string
	// Topic is the push topic that invalidates this view, or "" if none.
	Topic() string
	// Refresh re-fetches everything the view depends on and publishes a new
	// snapshot atomically. On error the previous snapshot is kept.
	Refresh(ctx context.Context) (Snapshot, error)
	// Snapshot returns the last published snapshot.
	Snapshot() Snapshot
	// OnPublish registers fn to run after every published snapshot.
	OnPublish(fn func(Snapshot))
}

// publisher implements the generation-guarded, all-or-nothing publish shared
// by all stores.
type publisher struct {
	name     string
	logger   aqm.Logger
	now      func() time.Time
	decorate func(Snapshot) Snapshot

	started atomic.Uint64

	mu        sync.RWMutex
	current   Snapshot
	listeners []func(Snapshot)

	// fanout orders listener calls; delivered is the newest generation sent.
	fanout    sync.Mutex
	delivered uint64

	action sync.Mutex
}

func (p *publisher) init(name string, logger aqm.Logger) {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	p.name = name
	p.logger = logger.With("view", name)
	p.now = time.Now
	p.decorate = func(s Snapshot) Snapshot { return s }
}

func (p *publisher) Name() string {
	return p.name
}

func (p *publisher) Snapshot() Snapshot {
	p.mu.RLock()
	current := p.current
	p.mu.RUnlock()
	return p.decorate(current)
}

func (p *publisher) OnPublish(fn func(Snapshot)) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// begin reserves a generation for a refresh about to start.
func (p *publisher) begin() uint64 {
	return p.started.Add(1)
}

// commit publishes snap under gen unless a newer refresh already published.
// A stale result is discarded and the newer snapshot is returned.
func (p *publisher) commit(gen uint64, snap Snapshot) Snapshot {
	p.mu.Lock()
	if gen <= p.current.Generation {
		current := p.current
		p.mu.Unlock()
		p.logger.Debug("discarding stale refresh", "generation", gen, "published", current.Generation)
		return p.decorate(current)
	}

	snap.View = p.name
	snap.Generation = gen
	snap.RefreshedAt = p.now()
	p.current = snap
	p.mu.Unlock()

	return p.deliver(snap)
}

// deliver runs the listeners for snap unless a newer generation was already
// delivered.
func (p *publisher) deliver(snap Snapshot) Snapshot {
	p.fanout.Lock()
	defer p.fanout.Unlock()

	snap = p.decorate(snap)
	if snap.Generation < p.delivered {
		p.logger.Debug("skipping superseded fan-out", "generation", snap.Generation, "delivered", p.delivered)
		return snap
	}
	p.delivered = snap.Generation

	p.mu.RLock()
	listeners := make([]func(Snapshot), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.RUnlock()

	for _, fn := range listeners {
		fn(snap)
	}
	return snap
}

// renotify sends the current snapshot to listeners again after a local-only
// change such as a cart edit.
func (p *publisher) renotify() {
	p.mu.RLock()
	current := p.current
	p.mu.RUnlock()

	if current.Empty() {
		return
	}
	p.deliver(current)
}

// tryAction takes the per-view action lock or fails with ErrActionInFlight.
// It serializes user mutations only; refreshes never take it.
func (p *publisher) tryAction() (func(), error) {
	if !p.action.TryLock() {
		return nil, ErrActionInFlight
	}
	return p.action.Unlock, nil
}
