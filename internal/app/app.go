// Package app assembles a runnable server from configuration, declaration
// files and registered controllers.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/conduit-lang/plumber/internal/cli/config"
	"github.com/conduit-lang/plumber/internal/loader"
	"github.com/conduit-lang/plumber/internal/plumbing"
	"github.com/conduit-lang/plumber/internal/registry"
	"github.com/conduit-lang/plumber/internal/web/middleware"
	"github.com/conduit-lang/plumber/internal/web/prehandlers"
	"github.com/conduit-lang/plumber/internal/web/router"
	"github.com/conduit-lang/plumber/internal/web/server"
)

// Names of the built-in pre-handlers hook files can refer to
const (
	PreJWT     = "jwt"
	PreBasic   = "basic"
	PreSession = "session"
)

// ErrAlreadyBuilt is returned when Build is called twice
var ErrAlreadyBuilt = errors.New("app already built")

// App holds everything needed to resolve and serve the declared routes
type App struct {
	config      *config.Config
	logger      *zap.Logger
	fs          afero.Fs
	controllers *registry.Controllers
	services    *registry.Services
	library     *prehandlers.Library
	sessions    *prehandlers.SessionStore

	router      *router.Router
	results     []*plumbing.Result
	diagnostics []plumbing.Diagnostic
	built       bool
}

// Option configures an App
type Option func(*App)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithFs sets the filesystem declaration files are read from
func WithFs(fs afero.Fs) Option {
	return func(a *App) {
		a.fs = fs
	}
}

// WithControllers sets the controller registry
func WithControllers(controllers *registry.Controllers) Option {
	return func(a *App) {
		a.controllers = controllers
	}
}

// WithServices sets the service registry exposed to handlers
func WithServices(services *registry.Services) Option {
	return func(a *App) {
		a.services = services
	}
}

// WithPreHandlers sets the library hook files resolve names against.
// The built-in pre-handlers are added to it by New.
func WithPreHandlers(library *prehandlers.Library) Option {
	return func(a *App) {
		a.library = library
	}
}

// New creates an App and registers the built-in pre-handlers the
// configuration enables
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	a := &App{
		config:      cfg,
		logger:      zap.NewNop(),
		fs:          afero.NewOsFs(),
		controllers: registry.NewControllers(),
		services:    registry.NewServices(),
		library:     prehandlers.NewLibrary(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.registerBuiltins(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) registerBuiltins() error {
	auth := a.config.Auth
	if auth.JWTSecret != "" {
		tokens := prehandlers.NewTokens(auth.JWTSecret, auth.TokenTTL)
		if err := a.library.Register(PreJWT, prehandlers.JWT(tokens)); err != nil {
			return err
		}
	}
	if len(auth.BasicUsers) > 0 {
		if err := a.library.Register(PreBasic, prehandlers.BasicAuth(auth.BasicRealm, auth.BasicUsers)); err != nil {
			return err
		}
	}

	rc := a.config.Redis
	if rc.Addr != "" {
		a.sessions = prehandlers.NewSessionStore(prehandlers.RedisConfig{
			Addr:      rc.Addr,
			Password:  rc.Password,
			DB:        rc.DB,
			KeyPrefix: rc.SessionPrefix,
		}, rc.SessionTTL)
		if err := a.library.Register(PreSession, prehandlers.LoadSession(a.sessions, rc.SessionCookie)); err != nil {
			return err
		}
	}
	return nil
}

// Controllers returns the controller registry
func (a *App) Controllers() *registry.Controllers { return a.controllers }

// Services returns the service registry
func (a *App) Services() *registry.Services { return a.services }

// Router returns the router routes are registered with
func (a *App) Router() *router.Router { return a.router }

// Results returns the resolution result of every group, app group first
func (a *App) Results() []*plumbing.Result { return a.results }

// Diagnostics returns every diagnostic raised while loading and resolving
func (a *App) Diagnostics() []plumbing.Diagnostic { return a.diagnostics }

// Build loads the declaration files, resolves the app group and every
// plugin group, and registers their routes. Nothing is served on failure.
func (a *App) Build() error {
	if a.built {
		return ErrAlreadyBuilt
	}

	diags := plumbing.NewDiagnostics(a.logger)
	cfg := a.config.App

	hooks, err := loader.LoadHooks(a.fs, cfg.HooksFile, a.library, diags)
	if err != nil {
		return fmt.Errorf("load hooks: %w", err)
	}

	groups, err := a.groups(diags)
	if err != nil {
		return err
	}

	plumber := plumbing.New(
		plumbing.WithLogger(a.logger),
		plumbing.WithLabels(server.Labels(a.config.Server.Connections)...),
		plumbing.WithHooks(hooks...),
	)

	r := router.NewRouter(router.WithLogger(a.logger), router.WithUploadDir(cfg.UploadDir))
	router.SetupDefaultErrorHandlers(r, false)
	r.Use(a.services.Middleware)

	results := make([]*plumbing.Result, 0, len(groups))
	for _, group := range groups {
		result, err := plumber.Pipe(r, group)
		if err != nil {
			return err
		}
		results = append(results, result)
		diags.Merge(result.Diagnostics)
	}

	if cfg.RoutesEndpoint != "" {
		if err := r.Get(cfg.RoutesEndpoint, routesHandler(r)); err != nil {
			return fmt.Errorf("register routes endpoint: %w", err)
		}
	}

	a.router = r
	a.results = results
	a.diagnostics = diags.Items()
	a.built = true

	a.logger.Info("routes resolved",
		zap.Int("groups", len(results)),
		zap.Int("routes", len(r.GetRoutes())),
		zap.Int("hooks", len(hooks)),
		zap.Int("diagnostics", len(a.diagnostics)),
	)
	return nil
}

// groups loads the app's route file and every plugin's
func (a *App) groups(diags *plumbing.Diagnostics) ([]plumbing.Group, error) {
	cfg := a.config.App

	decls, err := loader.LoadRoutes(a.fs, cfg.RoutesFile, diags)
	if err != nil {
		return nil, fmt.Errorf("load routes: %w", err)
	}
	groups := []plumbing.Group{{
		Name:         cfg.Name,
		Declarations: decls,
		Controllers:  a.controllers.Group(cfg.Name),
	}}

	plugins, err := loader.DiscoverPlugins(a.fs, cfg.PluginsDir, diags)
	if err != nil {
		return nil, err
	}
	for _, plugin := range plugins {
		if plugin.Name == cfg.Name {
			return nil, fmt.Errorf("plugin %s has the same name as the app", plugin.Name)
		}
		decls, err := loader.LoadRoutes(a.fs, plugin.RoutesFile, diags)
		if err != nil {
			return nil, fmt.Errorf("load routes for plugin %s: %w", plugin.Name, err)
		}
		groups = append(groups, plumbing.Group{
			Name:         plugin.Name,
			Declarations: decls,
			Controllers:  a.controllers.Group(plugin.Name),
		})
	}
	return groups, nil
}

// Handler returns the router behind the request-scoped middleware
func (a *App) Handler() http.Handler {
	return middleware.NewChain(
		middleware.RequestID(),
		middleware.Logging(a.logger),
		middleware.Recovery(a.logger),
	).Then(a.router)
}

// Server creates a server for the configured connections. Build must have
// succeeded first.
func (a *App) Server() (*server.Server, error) {
	if !a.built {
		return nil, fmt.Errorf("app must be built before serving")
	}

	sc := a.config.Server
	return server.New(&server.Config{
		Connections:       sc.Connections,
		Handler:           a.Handler(),
		ReadTimeout:       sc.ReadTimeout,
		WriteTimeout:      sc.WriteTimeout,
		IdleTimeout:       sc.IdleTimeout,
		ReadHeaderTimeout: sc.ReadHeaderTimeout,
		MaxHeaderBytes:    1 << 20,
	}, a.logger)
}

// Close releases connections held by the built-in pre-handlers
func (a *App) Close() error {
	if a.sessions != nil {
		return a.sessions.Close()
	}
	return nil
}

func routesHandler(r *router.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"routes": r.RouteListJSON()})
	}
}
