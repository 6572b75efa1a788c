// Package plumbing resolves declared routes, blueprint controllers and hooks
// into route records ready to be registered with a web server.
//
// Resolution runs once at startup:
//
//	decls + controllers --Expand--> RouteTable --AttachHooks--> Registrar
//
// Fatal configuration defects are returned as typed errors and nothing is
// registered. Recoverable conditions are reported as Diagnostics.
package plumbing

import (
	"fmt"

	"go.uber.org/zap"
)

// Registrar is the host server's route registration API
type Registrar interface {
	Register(route ResolvedRoute) error
}

// RegistrarFunc adapts a function to the Registrar interface
type RegistrarFunc func(route ResolvedRoute) error

// Register calls f(route)
func (f RegistrarFunc) Register(route ResolvedRoute) error {
	return f(route)
}

// Group is one unit of routes: the application itself or a plugin
type Group struct {
	Name         string
	Declarations []RouteDeclaration
	Controllers  Controllers
}

// Result is the outcome of resolving a group
type Result struct {
	Group       string
	Routes      *RouteTable
	Diagnostics []Diagnostic
}

// Plumber resolves and registers route groups
type Plumber struct {
	logger *zap.Logger
	labels []string
	hooks  []Hook
}

// Option configures a Plumber
type Option func(*Plumber)

// WithLogger sets the logger used for diagnostics and registration
func WithLogger(logger *zap.Logger) Option {
	return func(p *Plumber) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithLabels sets the connection labels hooks are matched against
func WithLabels(labels ...string) Option {
	return func(p *Plumber) {
		p.labels = append(p.labels, labels...)
	}
}

// WithHooks sets the hooks attached to resolved routes, in declaration order
func WithHooks(hooks ...Hook) Option {
	return func(p *Plumber) {
		p.hooks = append(p.hooks, hooks...)
	}
}

// New creates a Plumber
func New(opts ...Option) *Plumber {
	p := &Plumber{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Hooks returns the configured hooks
func (p *Plumber) Hooks() []Hook {
	return append([]Hook(nil), p.hooks...)
}

// Resolve expands a group's declarations and attaches hooks without
// registering anything
func (p *Plumber) Resolve(group Group) (*Result, error) {
	logger := p.logger.With(zap.String("group", group.Name))
	diags := NewDiagnostics(logger)

	if len(group.Declarations) == 0 {
		diags.Infof(CodeNoRoutes, "no routes declared for %s", group.Name)
	}
	if len(group.Controllers) == 0 {
		diags.Infof(CodeNoControllers, "no controllers registered for %s", group.Name)
	}
	if len(p.hooks) == 0 {
		diags.Infof(CodeNoHooks, "no hooks declared, routes get no pre-handlers from hooks")
	}

	table, err := Expand(group.Declarations, group.Controllers, diags)
	if err != nil {
		return nil, fmt.Errorf("resolve routes for %s: %w", group.Name, err)
	}

	AttachHooks(table, p.hooks, HookScope{Group: group.Name, Labels: p.labels})

	return &Result{
		Group:       group.Name,
		Routes:      table,
		Diagnostics: diags.Items(),
	}, nil
}

// Pipe resolves a group and registers every route, in table order. Nothing
// is registered if resolution fails.
func (p *Plumber) Pipe(reg Registrar, group Group) (*Result, error) {
	result, err := p.Resolve(group)
	if err != nil {
		return nil, err
	}

	for _, route := range result.Routes.Routes() {
		if err := reg.Register(route); err != nil {
			return nil, fmt.Errorf("register %s %s: %w", route.Method, route.Path, err)
		}
		p.logger.Debug("route registered",
			zap.String("group", group.Name),
			zap.String("method", route.Method),
			zap.String("path", route.Path),
			zap.Int("pre", len(route.Config.Pre)),
		)
	}

	return result, nil
}
