package commands

import (
	"errors"
	"io"

	"github.com/conduit-lang/plumber/internal/app"
	"github.com/conduit-lang/plumber/internal/cli/ui"
	"github.com/conduit-lang/plumber/internal/plumbing"
	"github.com/conduit-lang/plumber/internal/web/prehandlers"
)

// reportBuildError prints a resolution failure with the closest known
// names as suggestions
func reportBuildError(w io.Writer, err error, a *app.App, noColor bool) {
	opts := ui.ErrorOptions{
		Context: "resolution failed",
		Problem: err.Error(),
		NoColor: noColor,
		HelpCommands: []string{
			"List resolved routes: plumber routes",
		},
	}

	var (
		controllerErr *plumbing.ControllerNotFoundError
		actionErr     *plumbing.ActionNotFoundError
		duplicateErr  *plumbing.DuplicateRouteError
	)
	switch {
	case errors.As(err, &controllerErr):
		opts.Context = "controller not found"
		opts.Suggestions = ui.FindSimilar(controllerErr.Controller, controllerNames(a))
	case errors.As(err, &actionErr):
		opts.Context = "action not found"
		opts.Suggestions = ui.FindSimilar(actionErr.Action, actionNames(a, actionErr.Controller))
	case errors.As(err, &duplicateErr):
		opts.Context = "duplicate route"
	case errors.Is(err, prehandlers.ErrUnknownPreHandler):
		opts.Context = "unknown pre-handler"
		opts.HelpCommands = append(opts.HelpCommands, "Built-in pre-handlers: jwt, basic, session")
	}

	ui.WriteError(w, opts)
}

func controllerNames(a *app.App) []string {
	var names []string
	for _, group := range a.Controllers().Groups() {
		for name := range a.Controllers().Group(group) {
			names = append(names, name)
		}
	}
	return names
}

func actionNames(a *app.App, controller string) []string {
	var names []string
	for _, group := range a.Controllers().Groups() {
		for action := range a.Controllers().Group(group)[controller] {
			names = append(names, action)
		}
	}
	return names
}
