package session

import (
	"github.com/aquamarinepk/aqm"
)

// LoginPath is where callers are sent when the session becomes invalid.
const LoginPath = "/session"

// Context is the explicit session handed to the API client and the event
// subscriber. Invalidate clears the stored credentials and signals the
// caller to navigate to the login surface.
type Context struct {
	store     Store
	redirects chan string
	onInvalid func()
	logger    aqm.Logger
}

type Option func(*Context)

// WithOnInvalid registers a callback run after every invalidation.
func WithOnInvalid(fn func()) Option {
	return func(c *Context) {
		c.onInvalid = fn
	}
}

func WithLogger(logger aqm.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewContext(store Store, opts ...Option) *Context {
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Context{
		store:     store,
		redirects: make(chan string, 1),
		logger:    aqm.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccessToken returns the bearer credential, or "" if there is none.
func (c *Context) AccessToken() string {
	s, err := c.store.Load()
	if err != nil {
		return ""
	}
	return s.Access
}

func (c *Context) Current() (Session, error) {
	return c.store.Load()
}

func (c *Context) Save(s Session) error {
	return c.store.Save(s)
}

// Clear drops the credentials without signaling a redirect (logout).
func (c *Context) Clear() error {
	return c.store.Clear()
}

// Invalidate clears stale credentials and signals a redirect to LoginPath.
// The redirect channel holds at most one pending signal.
func (c *Context) Invalidate() {
	if err := c.store.Clear(); err != nil {
		c.logger.Error("cannot clear session", "error", err)
	}

	select {
	case c.redirects <- LoginPath:
	default:
	}

	if c.onInvalid != nil {
		c.onInvalid()
	}
}

// Redirects yields LoginPath each time the session is invalidated.
func (c *Context) Redirects() <-chan string {
	return c.redirects
}
