package plumbing

import (
	"net/http"
)

// PreFunc is a pre-handler. Its result is assigned to the request under the
// hook's assign name before the route handler runs.
type PreFunc func(r *http.Request) (any, error)

// Pre is a single pre-handler entry attached to a route
type Pre struct {
	Method PreFunc
	Assign string
	Name   string // Informational, used by introspection
}

// HandlerConfig is the normalized configuration of a controller action
type HandlerConfig struct {
	Handler     http.HandlerFunc
	Payload     *Payload
	Pre         []Pre
	Description string
}

// clone returns a copy that shares no slices with the receiver
func (c HandlerConfig) clone() HandlerConfig {
	out := c
	if c.Payload != nil {
		p := *c.Payload
		out.Payload = &p
	}
	if c.Pre != nil {
		out.Pre = append([]Pre(nil), c.Pre...)
	}
	return out
}

// Action is either a bare handler or a full handler configuration
type Action struct {
	handler http.HandlerFunc
	config  *HandlerConfig
}

// Handle wraps a bare handler function as an Action
func Handle(h http.HandlerFunc) Action {
	return Action{handler: h}
}

// Configure wraps a handler configuration as an Action
func Configure(cfg HandlerConfig) Action {
	return Action{config: &cfg}
}

// IsZero reports whether the action carries neither a handler nor a config
func (a Action) IsZero() bool {
	return a.handler == nil && a.config == nil
}

// Config normalizes the action into a HandlerConfig. Each call returns an
// independent copy so routes never share pre-handler slices.
func (a Action) Config() HandlerConfig {
	if a.config != nil {
		return a.config.clone()
	}
	return HandlerConfig{Handler: a.handler}
}

// Controller maps action names to actions
type Controller map[string]Action

// Has reports whether the controller implements the named action
func (c Controller) Has(action string) bool {
	a, ok := c[action]
	return ok && !a.IsZero()
}

// Controllers maps controller names (e.g. "user_controller") to controllers
type Controllers map[string]Controller
