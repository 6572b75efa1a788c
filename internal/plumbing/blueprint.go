package plumbing

import (
	"strings"
)

// BlueprintAction describes one conventional CRUD endpoint
type BlueprintAction struct {
	Name   string
	Method string
	Path   string // Relative to the declaration path; {id} is substituted
}

// Blueprint is the fixed table of blueprint actions, in expansion order
var Blueprint = []BlueprintAction{
	{Name: "index", Method: "get", Path: ""},
	{Name: "new", Method: "get", Path: "/new"},
	{Name: "edit", Method: "get", Path: "/{id}/edit"},
	{Name: "create", Method: "post", Path: "/create"},
	{Name: "update", Method: "post", Path: "/{id}/update"},
	{Name: "delete", Method: "post", Path: "/{id}/delete"},
	{Name: "sorting", Method: "get", Path: "/sorting"},
	{Name: "sorted", Method: "post", Path: "/sorted"},
}

// optionalBlueprintActions may be missing from a blueprint controller
// without a warning
var optionalBlueprintActions = map[string]bool{
	"sorting":     true,
	"sorted":      true,
	"delete-info": true,
	"update-info": true,
}

// ControllerSuffix is the suffix every blueprint controller name carries
const ControllerSuffix = "_controller"

// IsOptionalBlueprintAction reports whether a blueprint action may be left
// unimplemented silently
func IsOptionalBlueprintAction(name string) bool {
	return optionalBlueprintActions[name]
}

// IDParamName derives the path parameter used by a blueprint controller:
// "user_controller" -> "userid". The second result is false when the name
// does not carry the controller suffix.
func IDParamName(controllerName string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(controllerName))
	if !strings.HasSuffix(lower, ControllerSuffix) {
		return "", false
	}
	base := strings.TrimSuffix(lower, ControllerSuffix)
	if base == "" {
		return "", false
	}
	return base + "id", true
}

// blueprintPath joins a base path with a blueprint template, substituting
// every {id} with the controller's parameter name
func blueprintPath(base string, action BlueprintAction, param string) string {
	return base + strings.ReplaceAll(action.Path, "{id}", "{"+param+"}")
}
