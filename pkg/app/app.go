// Package app assembles the client core: REST clients, the push
// connection, the notification center and the session store, wired
// from a single configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/skillswap/swapclient/internal/snapshot"
	"github.com/skillswap/swapclient/pkg/api"
	"github.com/skillswap/swapclient/pkg/config"
	"github.com/skillswap/swapclient/pkg/notify"
	"github.com/skillswap/swapclient/pkg/push"
	"github.com/skillswap/swapclient/pkg/session"
)

// App owns every long-lived component of the client core and ties
// their lifecycles together.
type App struct {
	config *config.ClientConfig
	log    *slog.Logger

	httpClient *http.Client
	transport  push.Transport
	snapshots  snapshot.Store

	apiClient  *api.Client
	connection *push.Connection
	center     *notify.Center
	dispatcher *notify.Dispatcher
	sessions   *session.Store
}

// AppOption configures optional pieces of the App before wiring
type AppOption func(*App)

// WithHTTPClient sets the HTTP client used for REST calls
func WithHTTPClient(client *http.Client) AppOption {
	return func(a *App) {
		a.httpClient = client
	}
}

// WithTransport overrides the push transport, mainly for tests
func WithTransport(transport push.Transport) AppOption {
	return func(a *App) {
		a.transport = transport
	}
}

// WithSnapshotStore overrides the snapshot store built from the config
func WithSnapshotStore(store snapshot.Store) AppOption {
	return func(a *App) {
		a.snapshots = store
	}
}

// WithLogger sets the logger used by the App itself
func WithLogger(log *slog.Logger) AppOption {
	return func(a *App) {
		a.log = log
	}
}

// NewApp wires the client core from the given configuration
func NewApp(cfg *config.ClientConfig, options ...AppOption) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	a := &App{
		config: cfg,
		log:    slog.Default(),
	}

	for _, opt := range options {
		opt(a)
	}

	if a.snapshots == nil {
		store, err := snapshot.NewStore(cfg.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to create snapshot store: %w", err)
		}
		a.snapshots = store
	}

	apiClient, err := api.NewClient(cfg.API, cfg.ClientInfo, a.httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}
	a.apiClient = apiClient

	if a.transport == nil {
		a.transport = push.NewSSETransport(cfg.API.BaseURL, cfg.Push)
	}
	a.connection = push.NewConnection(a.transport, cfg.Push)

	a.center = notify.NewCenter(cfg.Notify)
	a.dispatcher = notify.NewDispatcher(a.connection, a.center)

	a.sessions = session.NewStore(
		api.NewAuthClient(apiClient),
		api.NewIdentityClient(apiClient),
		a.snapshots,
		a.connection,
	)

	return a, nil
}

// Start restores any persisted session. A valid snapshot logs the user
// back in and reopens their push channel; anything else settles the
// session logged out.
func (a *App) Start(ctx context.Context) {
	a.log.Info("starting skill-swap client core",
		"api", a.config.API.BaseURL,
		"snapshot_backend", a.config.Snapshot.Backend)
	a.sessions.Reload(ctx)
}

// Shutdown releases every component. The session itself is left
// untouched so its snapshot survives for the next Start.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down skill-swap client core")

	a.dispatcher.Close()
	a.connection.Close()
	a.center.ClearAll()

	if err := a.snapshots.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot store: %w", err)
	}
	return nil
}

// Sessions returns the session store
func (a *App) Sessions() *session.Store {
	return a.sessions
}

// Notifications returns the notification center
func (a *App) Notifications() *notify.Center {
	return a.center
}

// Push returns the push connection
func (a *App) Push() *push.Connection {
	return a.connection
}
