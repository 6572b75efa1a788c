package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/plumber/internal/cli/ui"
	"github.com/conduit-lang/plumber/internal/plumbing"
	"github.com/conduit-lang/plumber/internal/web/router"
)

// routesOutput is the --json document
type routesOutput struct {
	Routes      []router.RouteInfo    `json:"routes"`
	Diagnostics []plumbing.Diagnostic `json:"diagnostics"`
}

// newRoutesCommand creates the routes command
func newRoutesCommand(opts Options, f *flags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Resolve and list every route",
		Long: `Resolve the app's and every plugin's route declarations, attach hooks
and print the resulting route table with any diagnostics.

Exits with an error when resolution fails; nothing would be served.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, _, err := buildApp(opts, f, zap.NewNop(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if asJSON {
				diags := a.Diagnostics()
				if diags == nil {
					diags = []plumbing.Diagnostic{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(routesOutput{Routes: a.Router().RouteListJSON(), Diagnostics: diags})
			}

			table := ui.NewTable(out, f.noColor, "GROUP", "METHOD", "PATH", "ACTION", "PRE")
			for _, result := range a.Results() {
				for _, route := range result.Routes.Routes() {
					table.AddRow(
						result.Group,
						strings.ToUpper(route.Method),
						route.Path,
						route.Controller+"@"+route.Action,
						preNames(route.Config.Pre),
					)
				}
			}
			table.Render()

			if diags := a.Diagnostics(); len(diags) > 0 {
				fmt.Fprintln(out)
				ui.WriteDiagnostics(out, diags, f.noColor)
			}

			fmt.Fprintln(out)
			ui.WriteSuccess(out, fmt.Sprintf("%d routes resolved in %d groups", table.Len(), len(a.Results())), f.noColor)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the route table as JSON")
	return cmd
}

// preNames lists pre-handlers as name:assign
func preNames(pre []plumbing.Pre) string {
	names := make([]string, 0, len(pre))
	for _, p := range pre {
		if p.Name != "" {
			names = append(names, p.Name+":"+p.Assign)
		} else {
			names = append(names, p.Assign)
		}
	}
	return strings.Join(names, ", ")
}
