package plumbing

import (
	"errors"
	"fmt"
)

var (
	// ErrControllerNotFound is returned when a declaration names an unknown controller
	ErrControllerNotFound = errors.New("controller not found")
	// ErrActionNotFound is returned when a single-action declaration names an unknown action
	ErrActionNotFound = errors.New("controller action not found")
	// ErrDuplicateRoute is returned when two declarations resolve to the same path and method
	ErrDuplicateRoute = errors.New("duplicate route")
	// ErrInvalidRoute is returned for malformed declarations
	ErrInvalidRoute = errors.New("invalid route declaration")
	// ErrInvalidControllerName is returned when a blueprint controller lacks the _controller suffix
	ErrInvalidControllerName = errors.New("invalid controller name")
)

// ControllerNotFoundError reports a declaration that references an unknown controller
type ControllerNotFoundError struct {
	Controller string
	Path       string
}

func (e *ControllerNotFoundError) Error() string {
	return fmt.Sprintf("controller %q referenced by route %q not found", e.Controller, e.Path)
}

func (e *ControllerNotFoundError) Unwrap() error { return ErrControllerNotFound }

// ActionNotFoundError reports a single-action declaration whose action is missing
type ActionNotFoundError struct {
	Controller string
	Action     string
	Path       string
}

func (e *ActionNotFoundError) Error() string {
	return fmt.Sprintf("action %s@%s referenced by route %q not found in %s",
		e.Controller, e.Action, e.Path, e.Controller)
}

func (e *ActionNotFoundError) Unwrap() error { return ErrActionNotFound }

// DuplicateRouteError reports two declarations resolving to one route key
type DuplicateRouteError struct {
	Path   string
	Method string
}

func (e *DuplicateRouteError) Error() string {
	return fmt.Sprintf("route %s %s defined more than once", e.Method, e.Path)
}

func (e *DuplicateRouteError) Unwrap() error { return ErrDuplicateRoute }

// InvalidRouteError reports a malformed declaration
type InvalidRouteError struct {
	Path   string
	Reason string
}

func (e *InvalidRouteError) Error() string {
	return fmt.Sprintf("invalid route %q: %s", e.Path, e.Reason)
}

func (e *InvalidRouteError) Unwrap() error { return ErrInvalidRoute }

// InvalidControllerNameError reports a blueprint controller whose name cannot
// yield a path parameter
type InvalidControllerNameError struct {
	Controller string
}

func (e *InvalidControllerNameError) Error() string {
	return fmt.Sprintf("controller %q must end with %q to be used as a blueprint", e.Controller, ControllerSuffix)
}

func (e *InvalidControllerNameError) Unwrap() error { return ErrInvalidControllerName }
