package router

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/conduit-lang/plumber/internal/plumbing"
	"github.com/conduit-lang/plumber/internal/web/middleware"
	"github.com/conduit-lang/plumber/internal/web/request"
)

// ErrRouteExists is returned when a method and pattern are registered twice
var ErrRouteExists = errors.New("route already registered")

// Router manages HTTP routing using chi framework
type Router struct {
	mux    chi.Router
	routes map[string]*Route

	logger    *zap.Logger
	uploadDir string

	// For introspection and debugging
	registeredRoutes []*RouteInfo
}

// Route represents a single registered route
type Route struct {
	Pattern    string       // /users/{userid}/edit
	Method     string       // GET, POST, etc. or * for every method
	Handler    http.Handler // Handler wrapped with payload and pre-handlers
	Name       string       // controller@action
	Controller string
	Action     string
}

// RouteInfo provides metadata about a route for introspection
type RouteInfo struct {
	Pattern    string            `json:"pattern"`
	Method     string            `json:"method"`
	Name       string            `json:"name,omitempty"`
	Controller string            `json:"controller,omitempty"`
	Action     string            `json:"action,omitempty"`
	Blueprint  bool              `json:"blueprint,omitempty"`
	Pre        []string          `json:"pre,omitempty"`
	Payload    *plumbing.Payload `json:"payload,omitempty"`
	Parameters []RouteParameter  `json:"parameters,omitempty"`
}

// RouteParameter describes a parameter in a route
type RouteParameter struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // id, string
	Required bool   `json:"required"`
}

// Option configures a Router
type Option func(*Router)

// WithLogger sets the logger used for registration and pre-handler failures
func WithLogger(logger *zap.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithUploadDir sets the directory payload files are written to
func WithUploadDir(dir string) Option {
	return func(r *Router) {
		r.uploadDir = dir
	}
}

// NewRouter creates a new Router instance
func NewRouter(opts ...Option) *Router {
	r := &Router{
		mux:              chi.NewRouter(),
		routes:           make(map[string]*Route),
		logger:           zap.NewNop(),
		registeredRoutes: make([]*RouteInfo, 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ServeHTTP implements http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Use adds middleware to the router's middleware chain. Middleware must be
// added before the first route is registered.
func (r *Router) Use(middlewares ...middleware.Middleware) {
	for _, m := range middlewares {
		r.mux.Use(m)
	}
}

// Get registers a GET route outside of the route declarations
func (r *Router) Get(pattern string, handler http.HandlerFunc) error {
	return r.Register(plumbing.ResolvedRoute{
		Path:   pattern,
		Method: http.MethodGet,
		Config: plumbing.HandlerConfig{Handler: handler},
	})
}

// Register implements plumbing.Registrar. The handler runs behind the
// route's payload policy and pre-handlers, in that order. A "*" route and an
// explicit method on the same pattern are rejected with ErrRouteExists.
func (r *Router) Register(route plumbing.ResolvedRoute) (err error) {
	method := strings.ToUpper(strings.TrimSpace(route.Method))
	if method == "" {
		method = http.MethodGet
	}
	if !strings.HasPrefix(route.Path, "/") {
		return fmt.Errorf("route pattern %q must begin with '/'", route.Path)
	}
	if route.Config.Handler == nil {
		return fmt.Errorf("route %s %s has no handler", method, route.Path)
	}

	routeKey := fmt.Sprintf("%s:%s", method, route.Path)
	if _, exists := r.routes[routeKey]; exists {
		return fmt.Errorf("%w: %s %s", ErrRouteExists, method, route.Path)
	}
	if conflict := r.anyMethodConflict(method, route.Path); conflict != "" {
		return fmt.Errorf("%w: %s %s overlaps %s %s", ErrRouteExists, method, route.Path, conflict, route.Path)
	}

	handler := r.wrap(route.Config)

	// chi reports pattern errors by panicking
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("register %s %s: %v", method, route.Path, rec)
		}
	}()

	if method == "*" {
		r.mux.Handle(route.Path, handler)
	} else {
		r.mux.Method(method, route.Path, handler)
	}

	name := ""
	if route.Controller != "" {
		name = route.Controller + "@" + route.Action
	}

	r.routes[routeKey] = &Route{
		Pattern:    route.Path,
		Method:     method,
		Handler:    handler,
		Name:       name,
		Controller: route.Controller,
		Action:     route.Action,
	}

	pre := make([]string, 0, len(route.Config.Pre))
	for _, p := range route.Config.Pre {
		label := p.Assign
		if p.Name != "" {
			label = p.Name + ":" + p.Assign
		}
		pre = append(pre, label)
	}

	r.registeredRoutes = append(r.registeredRoutes, &RouteInfo{
		Pattern:    route.Path,
		Method:     method,
		Name:       name,
		Controller: route.Controller,
		Action:     route.Action,
		Blueprint:  route.Blueprint,
		Pre:        pre,
		Payload:    route.Config.Payload,
		Parameters: extractParameters(route.Path),
	})

	r.logger.Debug("route registered",
		zap.String("method", method),
		zap.String("path", route.Path),
		zap.String("name", name),
	)

	return nil
}

// anyMethodConflict returns the method already registered on pattern that a
// new registration would overlap: a "*" route owns every method of its
// pattern, so it cannot be mixed with explicit methods
func (r *Router) anyMethodConflict(method, pattern string) string {
	if method != "*" {
		if _, exists := r.routes["*:"+pattern]; exists {
			return "*"
		}
		return ""
	}
	for _, existing := range r.routes {
		if existing.Pattern == pattern {
			return existing.Method
		}
	}
	return ""
}

// wrap builds the handler chain for a route configuration
func (r *Router) wrap(cfg plumbing.HandlerConfig) http.Handler {
	var handler http.Handler = cfg.Handler
	handler = preHandlers(cfg.Pre, handler, r.logger)
	if cfg.Payload != nil {
		handler = request.PayloadHandler(*cfg.Payload, r.uploadDir, handler, WriteError)
	}
	return handler
}

// GetRoutes returns all registered routes for introspection
func (r *Router) GetRoutes() []*RouteInfo {
	return r.registeredRoutes
}

// GetRoute returns a route by name (controller@action)
func (r *Router) GetRoute(name string) (*Route, error) {
	for _, route := range r.routes {
		if route.Name == name {
			return route, nil
		}
	}
	return nil, fmt.Errorf("route not found: %s", name)
}

// RouteList returns a formatted list of all routes
func (r *Router) RouteList() string {
	var sb strings.Builder
	sb.WriteString("Registered Routes:\n")
	sb.WriteString(strings.Repeat("-", 80) + "\n")
	sb.WriteString(fmt.Sprintf("%-8s %-40s %-30s\n", "METHOD", "PATTERN", "NAME"))
	sb.WriteString(strings.Repeat("-", 80) + "\n")

	for _, info := range r.registeredRoutes {
		sb.WriteString(fmt.Sprintf("%-8s %-40s %-30s\n", info.Method, info.Pattern, info.Name))
	}

	return sb.String()
}

// RouteListJSON returns route information sorted by pattern then method
func (r *Router) RouteListJSON() []RouteInfo {
	// Create a copy to avoid exposing internal state
	routes := make([]RouteInfo, len(r.registeredRoutes))
	for i, route := range r.registeredRoutes {
		routes[i] = *route
	}
	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].Pattern != routes[j].Pattern {
			return routes[i].Pattern < routes[j].Pattern
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}

// NotFound sets the handler for 404 Not Found
func (r *Router) NotFound(handler http.HandlerFunc) {
	r.mux.NotFound(handler)
}

// MethodNotAllowed sets the handler for 405 Method Not Allowed
func (r *Router) MethodNotAllowed(handler http.HandlerFunc) {
	r.mux.MethodNotAllowed(handler)
}

// extractParameters extracts parameter definitions from a route pattern
func extractParameters(pattern string) []RouteParameter {
	params := make([]RouteParameter, 0)
	parts := strings.Split(pattern, "/")

	for _, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			paramName := strings.Trim(part, "{}")
			if i := strings.Index(paramName, ":"); i >= 0 {
				paramName = paramName[:i]
			}
			params = append(params, RouteParameter{
				Name:     paramName,
				Type:     inferParameterType(paramName),
				Required: true,
			})
		}
	}

	return params
}

// inferParameterType infers the type of a parameter from its name
func inferParameterType(name string) string {
	if strings.HasSuffix(strings.ToLower(name), "id") {
		return "id"
	}
	return "string"
}
