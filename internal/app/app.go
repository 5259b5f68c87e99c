package app

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/tableside/internal/api"
	"github.com/appetiteclub/tableside/internal/httpapi"
	"github.com/appetiteclub/tableside/internal/live"
	"github.com/appetiteclub/tableside/internal/session"
	"github.com/appetiteclub/tableside/internal/stream"
	"github.com/appetiteclub/tableside/pkg"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/middleware"
)

const (
	AppName    = "tableside"
	AppVersion = "0.1.0"

	defaultAPIURL  = "http://localhost:8000"
	defaultNATSURL = "nats://localhost:4222"
)

// App wires the session, the REST client, the push subscriber and the bound
// views behind the local HTTP surface.
type App struct {
	config *aqm.Config
	logger aqm.Logger
	micro  *aqm.Micro

	session  *session.Context
	client   *api.Client
	views    *live.Registry
	handler  *httpapi.Handler
	snapshot *pkg.NATSPublisher
}

func New(config *aqm.Config, logger aqm.Logger) (*App, error) {
	if config == nil {
		return nil, fmt.Errorf("missing config")
	}
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &App{
		config: config,
		logger: logger,
	}, nil
}

// Initialize sets up all dependencies and components.
func (a *App) Initialize(ctx context.Context) error {
	apiURL := a.config.GetStringOrDef("api.url", defaultAPIURL)

	timeout, err := time.ParseDuration(a.config.GetStringOrDef("api.timeout", "15s"))
	if err != nil {
		return fmt.Errorf("invalid api.timeout: %w", err)
	}

	var store session.Store = session.NewMemoryStore()
	if path, _ := a.config.GetString("session.file"); path != "" {
		store = session.NewFileStore(path)
		a.logger.Info("session persisted to file", "path", path)
	}

	a.session = session.NewContext(store,
		session.WithLogger(a.logger),
		session.WithOnInvalid(a.onSessionInvalid),
	)

	a.client = api.NewClient(apiURL, a.session,
		api.WithTimeout(timeout),
		api.WithLogger(a.logger),
	)
	subscriber := stream.NewSubscriber(apiURL, a.session, stream.WithLogger(a.logger))

	registryOpts := []live.RegistryOption{live.WithRegistryLogger(a.logger)}

	lifecycles := []interface{}{}

	natsEnabled, _ := a.config.GetString("nats.enabled")
	if natsEnabled == "true" {
		natsURL := a.config.GetStringOrDef("nats.url", defaultNATSURL)
		a.snapshot, err = pkg.NewNATSPublisher(natsURL)
		if err != nil {
			return err
		}
		subject := a.config.GetStringOrDef("views.topic", event.ViewsTopic)
		registryOpts = append(registryOpts, live.WithSnapshotPublisher(a.snapshot, subject))
		a.logger.Info("view snapshots published to NATS", "url", natsURL, "subject", subject)
	}

	a.views = live.NewRegistry(a.client, subscriber, registryOpts...)
	a.handler = httpapi.NewHandler(a.client, a.views, a.logger)

	lifecycles = append(lifecycles, a.views)
	if a.snapshot != nil {
		lifecycles = append(lifecycles, aqm.LifecycleHooks{
			OnStop: func(context.Context) error { return a.snapshot.Close() },
		})
	}

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      a.logger,
		DisableCORS: false,
	})

	options := []aqm.Option{
		aqm.WithConfig(a.config),
		aqm.WithLogger(a.logger),
		aqm.WithHTTPMiddleware(stack...),
		aqm.WithHTTPServerModules("web.port", a.handler),
		aqm.WithLifecycle(lifecycles...),
		aqm.WithHealthChecks(AppName),
	}

	a.micro = aqm.NewMicro(options...)
	return nil
}

// onSessionInvalid drops every bound view once the credentials are gone.
// It runs asynchronously because invalidation may happen while a view is
// being bound.
func (a *App) onSessionInvalid() {
	a.logger.Info("session invalidated, sign in required", "login", session.LoginPath)
	if a.views == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.views.Reset(ctx); err != nil {
			a.logger.Error("cannot reset views", "error", err)
		}
	}()
}

// Run starts the application.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}
