package live

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/appetiteclub/tableside/internal/view"
	"github.com/appetiteclub/tableside/pkg/enums/station"
	"github.com/aquamarinepk/aqm"
)

var ErrRegistryStopped = errors.New("view registry is not running")

// API is everything the bound views read and mutate.
type API interface {
	view.TableAPI
	view.StationAPI
	view.SalonAPI
}

// Registry lazily creates one bound view per name and keeps it alive until
// the registry stops or is reset.
type Registry struct {
	api        API
	subscriber Subscriber
	publisher  SnapshotPublisher
	subject    string
	logger     aqm.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	binders map[string]*Binder
}

type RegistryOption func(*Registry)

func WithRegistryLogger(logger aqm.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSnapshotPublisher forwards every bound view to p under base.
func WithSnapshotPublisher(p SnapshotPublisher, base string) RegistryOption {
	return func(r *Registry) {
		r.publisher = p
		r.subject = base
	}
}

func NewRegistry(client API, subscriber Subscriber, opts ...RegistryOption) *Registry {
	r := &Registry{
		api:        client,
		subscriber: subscriber,
		logger:     aqm.NewNoopLogger(),
		binders:    make(map[string]*Binder),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start makes the registry ready to bind views. Bound views live until Stop;
// cancelling ctx does not unbind them.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx != nil {
		return nil
	}
	r.ctx, r.cancel = context.WithCancel(context.WithoutCancel(ctx))
	r.logger.Info("view registry started")
	return nil
}

// Stop unbinds every view.
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel := r.cancel
	r.ctx, r.cancel = nil, nil
	r.mu.Unlock()

	err := r.Reset(ctx)
	if cancel != nil {
		cancel()
	}
	r.logger.Info("view registry stopped")
	return err
}

// Reset unbinds every view but keeps the registry running, e.g. after the
// session changed.
func (r *Registry) Reset(ctx context.Context) error {
	r.mu.Lock()
	binders := r.binders
	r.binders = make(map[string]*Binder)
	r.mu.Unlock()

	var errs []error
	for name, b := range binders {
		if err := b.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unbind %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Lookup returns an already bound view.
func (r *Registry) Lookup(name string) (*Binder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.binders[name]
	return b, ok
}

func (r *Registry) Salon() (*Binder, *view.SalonStore, error) {
	b, err := r.bind(view.SalonName, func() view.ViewStore {
		return view.NewSalonStore(r.api, r.logger)
	})
	if err != nil {
		return nil, nil, err
	}
	return b, b.Store().(*view.SalonStore), nil
}

func (r *Registry) Table(id int) (*Binder, *view.TableStore, error) {
	b, err := r.bind(view.TableViewName(id), func() view.ViewStore {
		return view.NewTableStore(r.api, id, r.logger)
	})
	if err != nil {
		return nil, nil, err
	}
	return b, b.Store().(*view.TableStore), nil
}

func (r *Registry) Station(st station.Station) (*Binder, *view.StationStore, error) {
	b, err := r.bind(view.StationViewName(st), func() view.ViewStore {
		return view.NewStationStore(r.api, st, r.logger)
	})
	if err != nil {
		return nil, nil, err
	}
	return b, b.Store().(*view.StationStore), nil
}

// bind returns the binder for name, creating and starting it on first use.
// Concurrent first calls for the same name share one binder.
func (r *Registry) bind(name string, mk func() view.ViewStore) (*Binder, error) {
	r.mu.Lock()
	if r.ctx == nil {
		r.mu.Unlock()
		return nil, ErrRegistryStopped
	}
	if b, ok := r.binders[name]; ok {
		r.mu.Unlock()
		return b, nil
	}

	opts := []Option{WithLogger(r.logger)}
	if r.publisher != nil {
		opts = append(opts, WithPublisher(r.publisher, r.subject))
	}
	b := NewBinder(mk(), r.subscriber, opts...)
	r.binders[name] = b
	runCtx := r.ctx
	r.mu.Unlock()

	if err := b.Start(runCtx); err != nil {
		r.mu.Lock()
		if r.binders[name] == b {
			delete(r.binders, name)
		}
		r.mu.Unlock()
		return nil, err
	}
	return b, nil
}
