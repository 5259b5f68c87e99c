package live

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/appetiteclub/tableside/internal/api"
	"github.com/appetiteclub/tableside/internal/reconcile"
	"github.com/appetiteclub/tableside/internal/stream"
	"github.com/appetiteclub/tableside/internal/view"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

const watcherBuffer = 16

// ErrUnbound is returned by Watch once the binder was stopped.
var ErrUnbound = errors.New("view is not bound")

// Subscriber opens push subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (*stream.Subscription, error)
}

// SnapshotPublisher forwards published views to an external bus.
type SnapshotPublisher interface {
	Publish(ctx context.Context, topic string, msg []byte) error
}

// State is what watchers of a view receive: the last snapshot plus the
// health of its push channel.
type State struct {
	Snapshot view.Snapshot `json:"snapshot"`
	Degraded bool          `json:"degraded"`
	Error    string        `json:"error,omitempty"`
}

// Binder keeps one view store in sync with its push topic.
type Binder struct {
	store      view.ViewStore
	subscriber Subscriber
	policy     *reconcile.Policy
	publisher  SnapshotPublisher
	subject    string
	logger     aqm.Logger

	mu       sync.RWMutex
	degraded bool
	lastErr  string
	watchers map[string]chan State
	started  bool
	cancel   context.CancelFunc
	sub      *stream.Subscription
	done     chan struct{}
}

type Option func(*Binder)

func WithLogger(logger aqm.Logger) Option {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithPublisher forwards every published state to p under base.
func WithPublisher(p SnapshotPublisher, base string) Option {
	return func(b *Binder) {
		b.publisher = p
		b.subject = event.ViewSubject(base, b.store.Name())
	}
}

func NewBinder(store view.ViewStore, subscriber Subscriber, opts ...Option) *Binder {
	b := &Binder{
		store:      store,
		subscriber: subscriber,
		logger:     aqm.NewNoopLogger(),
		watchers:   make(map[string]chan State),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("view", store.Name())
	b.policy = reconcile.NewPolicy(b.logger)

	store.OnPublish(func(snap view.Snapshot) {
		b.broadcast(b.stateOf(snap))
	})
	return b
}

func (b *Binder) Store() view.ViewStore {
	return b.store
}

// Start refreshes the view, then listens on its topic until Stop or until
// ctx is cancelled. A failed subscription leaves the view degraded; it is
// not retried. An unauthenticated session aborts the start.
func (b *Binder) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = true
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	done := make(chan struct{})
	b.done = done
	b.mu.Unlock()

	if _, err := b.store.Refresh(runCtx); err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			b.abort(done)
			return err
		}
		b.logger.Error("initial refresh failed", "error", err)
	}

	topic := b.store.Topic()
	if topic == "" {
		b.logger.Debug("view has no push topic")
		close(done)
		return nil
	}

	sub, err := b.subscriber.Subscribe(runCtx, topic)
	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			b.abort(done)
			return err
		}
		b.logger.Error("cannot subscribe, view is degraded", "topic", topic, "error", err)
		close(done)
		b.setDegraded(err)
		return nil
	}

	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		sub.Close()
		close(done)
		return nil
	}
	b.sub = sub
	b.mu.Unlock()

	go b.listen(runCtx, sub, done)
	return nil
}

func (b *Binder) abort(done chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancel()
	close(done)
	b.started = false
}

func (b *Binder) listen(ctx context.Context, sub *stream.Subscription, done chan struct{}) {
	defer close(done)

	for evt := range sub.Events() {
		if b.policy.OnEvent(evt) != reconcile.FullRefresh {
			continue
		}
		if _, err := b.store.Refresh(ctx); err != nil {
			b.logger.Error("refresh after push event failed", "kind", evt.Kind, "error", err)
		}
	}

	if err := sub.Err(); err != nil {
		b.logger.Error("push channel lost, view is degraded", "error", err)
		b.setDegraded(err)
	}
}

// Stop releases the subscription and waits for the listener to exit.
func (b *Binder) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}
	cancel, sub, done := b.cancel, b.sub, b.done
	b.started = false
	b.sub = nil
	b.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	b.mu.Lock()
	for id, ch := range b.watchers {
		close(ch)
		delete(b.watchers, id)
	}
	b.mu.Unlock()

	b.logger.Info("view unbound")
	return nil
}

// State returns the current view state.
func (b *Binder) State() State {
	return b.stateOf(b.store.Snapshot())
}

func (b *Binder) stateOf(snap view.Snapshot) State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return State{Snapshot: snap, Degraded: b.degraded, Error: b.lastErr}
}

func (b *Binder) setDegraded(err error) {
	b.mu.Lock()
	b.degraded = true
	b.lastErr = err.Error()
	b.mu.Unlock()

	b.broadcast(b.State())
}

// Watch registers a watcher that receives every state change. The current
// state is delivered first when the view was already loaded. A stopped
// binder returns ErrUnbound.
func (b *Binder) Watch() (string, <-chan State, error) {
	id := uuid.NewString()
	ch := make(chan State, watcherBuffer)

	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return "", nil, ErrUnbound
	}
	state := State{Snapshot: b.store.Snapshot(), Degraded: b.degraded, Error: b.lastErr}
	if !state.Snapshot.Empty() || state.Degraded {
		ch <- state
	}
	b.watchers[id] = ch
	total := len(b.watchers)
	b.mu.Unlock()

	b.logger.Debug("watcher added", "watcher_id", id, "total_watchers", total)
	return id, ch, nil
}

func (b *Binder) Unwatch(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.watchers[id]; ok {
		close(ch)
		delete(b.watchers, id)
		b.logger.Debug("watcher removed", "watcher_id", id, "total_watchers", len(b.watchers))
	}
}

func (b *Binder) broadcast(state State) {
	b.mu.RLock()
	for id, ch := range b.watchers {
		select {
		case ch <- state:
		default:
			b.logger.Info("watcher channel full, dropping state", "watcher_id", id)
		}
	}
	b.mu.RUnlock()

	b.forward(state)
}

func (b *Binder) forward(state State) {
	if b.publisher == nil {
		return
	}

	raw, err := json.Marshal(state.Snapshot)
	if err != nil {
		b.logger.Error("cannot encode snapshot", "error", err)
		return
	}

	eventType := event.EventViewUpdated
	if state.Degraded {
		eventType = event.EventViewFailed
	}
	msg, err := json.Marshal(event.ViewUpdatedEvent{
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		View:       b.store.Name(),
		Generation: state.Snapshot.Generation,
		Degraded:   state.Degraded,
		Error:      state.Error,
		Snapshot:   raw,
	})
	if err != nil {
		b.logger.Error("cannot encode view event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.publisher.Publish(ctx, b.subject, msg); err != nil {
		b.logger.Error("cannot publish view", "subject", b.subject, "error", err)
	}
}
