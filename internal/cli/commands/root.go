package commands

import (
	"errors"
	"io"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/plumber/internal/app"
	"github.com/conduit-lang/plumber/internal/cli/config"
	"github.com/conduit-lang/plumber/internal/cli/ui"
	"github.com/conduit-lang/plumber/internal/registry"
	"github.com/conduit-lang/plumber/internal/web/prehandlers"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// Options carries what the binary embedding the CLI registers in code
type Options struct {
	Controllers *registry.Controllers
	Services    *registry.Services
	PreHandlers *prehandlers.Library
	Fs          afero.Fs
}

// flags shared by every command
type flags struct {
	configPath string
	noColor    bool
}

// NewRootCommand creates the root command
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:   "plumber",
		Short: "Resolve declared routes and hooks and serve them",
		Long: color.CyanString(`plumber - route and hook resolution

Reads route declarations, expands blueprint controllers into CRUD routes,
attaches hooks as pre-handlers and registers everything with the HTTP router.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&f.configPath, "config", "c", "", "config file (default ./plumber.yml)")
	rootCmd.PersistentFlags().BoolVar(&f.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newVersionCommand(f))
	rootCmd.AddCommand(newRoutesCommand(opts, f))
	rootCmd.AddCommand(newServeCommand(opts, f))

	return rootCmd
}

// newVersionCommand creates the version command
func newVersionCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the plumber version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			kv := ui.NewKeyValueTable(cmd.OutOrStdout(), f.noColor)
			kv.AddRow("Plumber version", Version)
			kv.AddRow("Git commit", GitCommit)
			kv.AddRow("Build date", BuildDate)
			kv.AddRow("Go version", goVer)
			kv.Render()
		},
	}
}

// buildApp loads the configuration and resolves every route group,
// and returns the logger it used. A nil logger is built from the config.
func buildApp(opts Options, f *flags, logger *zap.Logger, stderr io.Writer) (*app.App, *config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.Fs, f.configPath)
	if err != nil {
		ui.WriteError(stderr, ui.ErrorOptions{
			Context:      "configuration error",
			Problem:      err.Error(),
			HelpCommands: []string{"Check the config file: plumber.yml"},
			NoColor:      f.noColor,
		})
		return nil, nil, nil, &reportedError{err}
	}
	if logger == nil {
		logger, err = config.NewLogger(cfg.Log)
		if err != nil {
			logger = zap.NewNop()
		}
	}

	appOpts := []app.Option{app.WithLogger(logger), app.WithFs(opts.Fs)}
	if opts.Controllers != nil {
		appOpts = append(appOpts, app.WithControllers(opts.Controllers))
	}
	if opts.Services != nil {
		appOpts = append(appOpts, app.WithServices(opts.Services))
	}
	if opts.PreHandlers != nil {
		appOpts = append(appOpts, app.WithPreHandlers(opts.PreHandlers))
	}

	a, err := app.New(cfg, appOpts...)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := a.Build(); err != nil {
		reportBuildError(stderr, err, a, f.noColor)
		_ = a.Close()
		return nil, nil, nil, &reportedError{err}
	}
	return a, cfg, logger, nil
}

// reportedError has already been printed in full by the command
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// Execute runs the root command
func Execute(opts Options) error {
	rootCmd := NewRootCommand(opts)
	if err := rootCmd.Execute(); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			errorColor := color.New(color.FgRed, color.Bold)
			errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return err
	}
	return nil
}
