package plumbing

import (
	"strings"
)

// RouteDeclaration is one entry of a route file
type RouteDeclaration struct {
	Path   string   `mapstructure:"path" json:"path"`
	Method string   `mapstructure:"method" json:"method,omitempty"`
	Action string   `mapstructure:"action" json:"action,omitempty"`
	Config string   `mapstructure:"config" json:"config,omitempty"` // Legacy alias of Action
	Except []string `mapstructure:"except" json:"except,omitempty"`
}

// Target returns the action reference, falling back to the legacy config key
func (d RouteDeclaration) Target() string {
	if strings.TrimSpace(d.Action) != "" {
		return strings.TrimSpace(d.Action)
	}
	return strings.TrimSpace(d.Config)
}

// IsBlueprint reports whether the declaration expands to blueprint routes
func (d RouteDeclaration) IsBlueprint() bool {
	return !strings.Contains(d.Target(), "@")
}

// Excludes reports whether the blueprint action is listed in Except
func (d RouteDeclaration) Excludes(action string) bool {
	for _, name := range d.Except {
		if strings.TrimSpace(name) == action {
			return true
		}
	}
	return false
}

// splitTarget splits "controller@action". Both parts are empty when the
// target holds more than one @.
func splitTarget(target string) (controller, action string) {
	controller, action, _ = strings.Cut(target, "@")
	if strings.Contains(action, "@") {
		return "", ""
	}
	return strings.TrimSpace(controller), strings.TrimSpace(action)
}

var allowedMethods = map[string]bool{
	"get":     true,
	"post":    true,
	"put":     true,
	"patch":   true,
	"delete":  true,
	"head":    true,
	"options": true,
	"*":       true,
}

// normalizeMethod lower-cases the method, defaulting to get
func normalizeMethod(method string) (string, bool) {
	m := strings.ToLower(strings.TrimSpace(method))
	if m == "" {
		return "get", true
	}
	return m, allowedMethods[m]
}
