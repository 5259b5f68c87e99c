package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/appetiteclub/tableside/internal/api"
	"github.com/appetiteclub/tableside/internal/session"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

const (
	// EventsEndpoint is the push endpoint. The token travels as a query
	// parameter because the push protocol cannot carry custom headers.
	EventsEndpoint = "/api/events/"

	eventBuffer = 64
)

// Subscriber opens push subscriptions scoped to a topic.
type Subscriber struct {
	baseURL string
	http    *http.Client
	session *session.Context
	logger  aqm.Logger

	mu     sync.Mutex
	active map[string]*Subscription
}

type Option func(*Subscriber)

// WithHTTPClient sets the client used for push connections. It must not
// carry a global timeout since subscriptions are long lived.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Subscriber) {
		if hc != nil {
			s.http = hc
		}
	}
}

func WithLogger(logger aqm.Logger) Option {
	return func(s *Subscriber) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSubscriber(baseURL string, sess *session.Context, opts ...Option) *Subscriber {
	if sess == nil {
		sess = session.NewContext(nil)
	}
	s := &Subscriber{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		session: sess,
		logger:  aqm.NewNoopLogger(),
		active:  make(map[string]*Subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe opens a push channel for topic. The returned subscription lives
// until Close is called, ctx is cancelled or the transport fails.
func (s *Subscriber) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	if topic == "" {
		return nil, errors.New("missing topic")
	}

	token := s.session.AccessToken()
	if token == "" {
		s.logger.Info("no credential for push subscription, redirecting to login", "topic", topic)
		s.session.Invalidate()
		return nil, api.ErrUnauthenticated
	}

	q := url.Values{}
	q.Set("channel", topic)
	q.Set("_sse_token", token)

	subCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(subCtx, http.MethodGet, s.baseURL+EventsEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	id := uuid.NewString()
	log := s.logger.With("subscription_id", id, "topic", topic)

	resp, err := s.http.Do(req)
	if err != nil {
		cancel()
		log.Error("push connection failed", "error", err)
		return nil, &TransportFailedError{Topic: topic, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		cancel()
		log.Info("push subscription rejected, redirecting to login", "status", resp.StatusCode)
		s.session.Invalidate()
		return nil, api.ErrUnauthenticated
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		cancel()
		log.Error("push subscription refused", "status", resp.StatusCode)
		return nil, &TransportFailedError{
			Topic: topic,
			Err:   fmt.Errorf("unexpected status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	sub := &Subscription{
		id:     id,
		topic:  topic,
		events: make(chan event.Event, eventBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
		body:   resp.Body,
		logger: log,
	}

	s.track(sub)
	go func() {
		defer s.untrack(sub)
		sub.run(subCtx)
	}()

	log.Info("push subscription opened")
	return sub, nil
}

// ActiveCount returns the number of subscriptions whose transport is still held.
func (s *Subscriber) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Subscriber) track(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[sub.id] = sub
}

func (s *Subscriber) untrack(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, sub.id)
}

// Subscription is a lazy, non-restartable sequence of push events.
type Subscription struct {
	id     string
	topic  string
	events chan event.Event
	done   chan struct{}
	cancel context.CancelFunc
	body   io.ReadCloser
	logger aqm.Logger

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
	err       error
}

func (s *Subscription) ID() string {
	return s.id
}

func (s *Subscription) Topic() string {
	return s.topic
}

// Events yields decoded events and is closed when the subscription ends.
func (s *Subscription) Events() <-chan event.Event {
	return s.events
}

// Done is closed once the transport has been released.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal error after Events is closed: nil after Close,
// a *TransportFailedError otherwise.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close releases the transport and waits for the reader to exit. It is safe
// to call more than once.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.cancel()
	})
	<-s.done
	return nil
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)
	defer s.body.Close()
	defer s.cancel()

	dec := newDecoder(s.body)
	for {
		f, err := dec.next()
		if err != nil {
			s.fail(ctx, err)
			return
		}

		evt := f.toEvent(s.topic)
		select {
		case s.events <- evt:
		case <-ctx.Done():
			s.fail(ctx, ctx.Err())
			return
		}
	}
}

// fail records the terminal error. Teardown through Close or through the
// caller's context is not a failure.
func (s *Subscription) fail(ctx context.Context, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || ctx.Err() != nil {
		s.logger.Info("push subscription closed")
		return
	}
	if errors.Is(err, io.EOF) {
		err = errors.New("stream closed by server")
	}
	s.err = &TransportFailedError{Topic: s.topic, Err: err}
	s.logger.Error("push subscription failed", "error", err)
}
