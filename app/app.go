// Package app wires the credential store, API client, session and catalogue together.
package app

import (
	"context"
	"net/http"

	"github.com/jrsteele09/dojotv/api"
	"github.com/jrsteele09/dojotv/auth"
	"github.com/jrsteele09/dojotv/catalog"
	"github.com/jrsteele09/dojotv/credentials"
	"github.com/jrsteele09/dojotv/credentials/filestore"
	"github.com/jrsteele09/dojotv/credentials/redisstore"
	"github.com/jrsteele09/dojotv/credentials/repofake"
	"github.com/jrsteele09/dojotv/internal/config"
	apperrors "github.com/jrsteele09/dojotv/internal/errors"
	"github.com/jrsteele09/dojotv/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// App is the constructed dependency graph. There are no package globals; everything a
// consumer needs hangs off this value.
type App struct {
	Config      config.Config
	Credentials credentials.Store
	Client      *api.Client
	Auth        *auth.Service
	Session     *sessions.Store
	Catalog     *catalog.Service

	closers []func() error
}

type options struct {
	store        credentials.Store
	httpClient   *http.Client
	interceptors []api.Interceptor
}

type Option func(*options)

// WithCredentialStore bypasses the configured backend.
func WithCredentialStore(store credentials.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

func WithInterceptors(mw ...api.Interceptor) Option {
	return func(o *options) {
		o.interceptors = append(o.interceptors, mw...)
	}
}

// New builds the graph. The session is registered as the client's reset hook once both exist.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{Config: cfg}

	store := o.store
	if store == nil {
		s, closer, err := newCredentialStore(ctx, cfg)
		if err != nil {
			return nil, errors.Wrap(err, "[app.New] newCredentialStore")
		}
		store = s
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}
	a.Credentials = store

	clientOpts := []api.ClientOption{
		api.WithTimeout(cfg.GetRequestTimeout()),
		api.WithAuthScheme(cfg.GetAuthScheme()),
		api.WithInterceptors(o.interceptors...),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(o.httpClient))
	}
	client, err := api.New(cfg.GetBaseURL(), store, clientOpts...)
	if err != nil {
		a.Close()
		return nil, errors.Wrap(err, "[app.New] api.New")
	}
	a.Client = client

	a.Auth = auth.NewService(client)
	a.Session = sessions.NewStore(store, a.Auth, sessions.WithLogoutTimeout(cfg.GetLogoutTimeout()))
	client.SetSessionResetter(a.Session)
	a.Catalog = catalog.NewService(client)

	return a, nil
}

// Start restores the persisted session. Call it before anything branches on auth state.
func (a *App) Start(ctx context.Context) sessions.State {
	st := a.Session.Bootstrap(ctx)
	log.Debug().Str("status", st.Status.String()).Str("role", st.Role.String()).Msg("app started")
	return st
}

// Close waits for any background logout, bounded by the logout timeout, then releases
// backend connections.
func (a *App) Close() error {
	if a.Session != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Session.LogoutTimeout())
		if err := a.Session.Drain(ctx); err != nil {
			log.Warn().Err(err).Msg("gave up waiting for remote logout")
		}
		cancel()
	}

	var firstErr error
	for _, c := range a.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

func newCredentialStore(ctx context.Context, cfg config.StorageConfig) (credentials.Store, func() error, error) {
	switch backend := cfg.GetStorageBackend(); backend {
	case config.StorageBackendFile, "":
		store, err := filestore.New(cfg.GetStorageDir(), cfg.GetStorageSecret())
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case config.StorageBackendRedis:
		client, err := redisstore.NewClient(ctx, cfg.GetRedisURL())
		if err != nil {
			return nil, nil, err
		}
		return redisstore.New(client, cfg.GetRedisKeyPrefix()), client.Close, nil
	case config.StorageBackendMemory:
		log.Warn().Msg("using in-memory credential store, sessions will not survive a restart")
		return repofake.NewFakeCredentialStore(), nil, nil
	default:
		return nil, nil, errors.Wrapf(apperrors.ErrUnsupported, "storage backend %q", backend)
	}
}
