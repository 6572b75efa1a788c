package plumbing

import (
	"strings"
)

// Hook is a pre-handler that attaches itself to every route it applies to
type Hook struct {
	Name           string // Name of the pre-handler in the library, informational
	Method         PreFunc
	Assign         string
	AvailableAfter string   // Path prefix; empty applies everywhere
	Labels         []string // Connection labels; empty applies to every connection
	Plugins        []string // Route groups; empty applies to every group
}

// HookScope describes where routes are being registered
type HookScope struct {
	Group  string   // Name of the app or plugin owning the routes
	Labels []string // Union of labels across the server's connections
}

// Matches reports whether the hook applies to a route path in the scope.
// AvailableAfter is a plain prefix check, not segment-aware.
func (h Hook) Matches(path string, scope HookScope) bool {
	if len(h.Plugins) > 0 && !contains(h.Plugins, scope.Group) {
		return false
	}
	if len(h.Labels) > 0 && !intersects(h.Labels, scope.Labels) {
		return false
	}
	if h.AvailableAfter != "" && !strings.HasPrefix(path, h.AvailableAfter) {
		return false
	}
	return true
}

// AttachHooks replaces every route's pre-handler list with the matching
// hooks, in declaration order. Pre-handlers the action declared are dropped.
func AttachHooks(table *RouteTable, hooks []Hook, scope HookScope) {
	table.each(func(route *ResolvedRoute) {
		pre := make([]Pre, 0, len(hooks))
		for _, hook := range hooks {
			if !hook.Matches(route.Path, scope) {
				continue
			}
			pre = append(pre, Pre{
				Method: hook.Method,
				Assign: hook.Assign,
				Name:   hook.Name,
			})
		}
		route.Config.Pre = pre
	})
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, item := range a {
		if contains(b, item) {
			return true
		}
	}
	return false
}
