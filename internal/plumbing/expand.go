package plumbing

import (
	"fmt"
)

// Expand resolves route declarations against controllers. Single-action
// declarations produce one route each; blueprint declarations produce one
// route per implemented blueprint action. Any fatal error aborts the whole
// expansion. Recoverable conditions are recorded on diags, which may be nil.
func Expand(decls []RouteDeclaration, controllers Controllers, diags *Diagnostics) (*RouteTable, error) {
	if diags == nil {
		diags = NewDiagnostics(nil)
	}

	table := NewRouteTable()
	for _, decl := range decls {
		var err error
		if decl.IsBlueprint() {
			err = expandBlueprint(table, decl, controllers, diags)
		} else {
			err = expandSingle(table, decl, controllers)
		}
		if err != nil {
			return nil, err
		}
	}

	return table, nil
}

func expandSingle(table *RouteTable, decl RouteDeclaration, controllers Controllers) error {
	target := decl.Target()
	controllerName, actionName := splitTarget(target)
	if controllerName == "" || actionName == "" {
		return &InvalidRouteError{Path: decl.Path, Reason: fmt.Sprintf("action %q must be controller@action", target)}
	}

	method, ok := normalizeMethod(decl.Method)
	if !ok {
		return &InvalidRouteError{Path: decl.Path, Reason: fmt.Sprintf("unsupported method %q", decl.Method)}
	}

	controller, ok := controllers[controllerName]
	if !ok {
		return &ControllerNotFoundError{Controller: controllerName, Path: decl.Path}
	}

	if !controller.Has(actionName) {
		return &ActionNotFoundError{Controller: controllerName, Action: actionName, Path: decl.Path}
	}

	cfg := controller[actionName].Config()
	if cfg.Handler == nil {
		return &InvalidRouteError{Path: decl.Path, Reason: fmt.Sprintf("%s@%s has no handler", controllerName, actionName)}
	}

	return table.Add(ResolvedRoute{
		Path:       decl.Path,
		Method:     method,
		Config:     cfg,
		Controller: controllerName,
		Action:     actionName,
	})
}

func expandBlueprint(table *RouteTable, decl RouteDeclaration, controllers Controllers, diags *Diagnostics) error {
	controllerName := decl.Target()
	if controllerName == "" {
		return &InvalidRouteError{Path: decl.Path, Reason: "missing action"}
	}

	controller, ok := controllers[controllerName]
	if !ok {
		return &ControllerNotFoundError{Controller: controllerName, Path: decl.Path}
	}

	param, ok := IDParamName(controllerName)
	if !ok {
		return &InvalidControllerNameError{Controller: controllerName}
	}

	for _, bp := range Blueprint {
		if decl.Excludes(bp.Name) {
			continue
		}

		if !controller.Has(bp.Name) {
			if !IsOptionalBlueprintAction(bp.Name) {
				diags.Warnf(CodeUnimplementedBlueprintAction,
					"controller %s is declared as a blueprint on %q but does not implement %q",
					controllerName, decl.Path, bp.Name)
			}
			continue
		}

		cfg := controller[bp.Name].Config()
		if cfg.Handler == nil {
			return &InvalidRouteError{Path: decl.Path, Reason: fmt.Sprintf("%s@%s has no handler", controllerName, bp.Name)}
		}
		if cfg.Payload == nil {
			cfg.Payload = DefaultPayload(bp.Name)
		}

		route := ResolvedRoute{
			Path:       blueprintPath(decl.Path, bp, param),
			Method:     bp.Method,
			Config:     cfg,
			Controller: controllerName,
			Action:     bp.Name,
			Blueprint:  true,
		}
		if err := table.Add(route); err != nil {
			return err
		}
	}

	return nil
}
