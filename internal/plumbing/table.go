package plumbing

// ResolvedRoute is a route ready to be registered with the host server
type ResolvedRoute struct {
	Path       string
	Method     string // Lower-case
	Config     HandlerConfig
	Controller string
	Action     string
	Blueprint  bool
}

// Key returns the route identity, path@method
func (r ResolvedRoute) Key() string {
	return RouteKey(r.Path, r.Method)
}

// RouteKey builds the identity used to detect duplicate routes
func RouteKey(path, method string) string {
	m, _ := normalizeMethod(method)
	return path + "@" + m
}

// RouteTable is an insertion-ordered set of resolved routes
type RouteTable struct {
	keys   []string
	routes map[string]*ResolvedRoute
}

// NewRouteTable creates an empty table
func NewRouteTable() *RouteTable {
	return &RouteTable{
		routes: make(map[string]*ResolvedRoute),
	}
}

// Add inserts a route, failing with a DuplicateRouteError when its key is taken
func (t *RouteTable) Add(route ResolvedRoute) error {
	key := route.Key()
	if _, exists := t.routes[key]; exists {
		return &DuplicateRouteError{Path: route.Path, Method: route.Method}
	}
	t.keys = append(t.keys, key)
	t.routes[key] = &route
	return nil
}

// Get returns the route registered under path and method
func (t *RouteTable) Get(path, method string) (*ResolvedRoute, bool) {
	route, ok := t.routes[RouteKey(path, method)]
	return route, ok
}

// Len returns the number of routes
func (t *RouteTable) Len() int {
	return len(t.keys)
}

// Keys returns route keys in insertion order
func (t *RouteTable) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Routes returns the routes in insertion order
func (t *RouteTable) Routes() []ResolvedRoute {
	out := make([]ResolvedRoute, 0, len(t.keys))
	for _, key := range t.keys {
		out = append(out, *t.routes[key])
	}
	return out
}

// each visits routes in insertion order with mutable access
func (t *RouteTable) each(fn func(*ResolvedRoute)) {
	for _, key := range t.keys {
		fn(t.routes[key])
	}
}
