package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/plumber/internal/web/server"
)

// newServeCommand creates the serve command
func newServeCommand(opts Options, f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Resolve routes and serve them on every configured connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, logger, err := buildApp(opts, f, nil, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			srv, err := a.Server()
			if err != nil {
				_ = a.Close()
				return err
			}

			defer func() { _ = logger.Sync() }()

			gs := server.NewGracefulShutdown(srv, cfg.Server.ShutdownTimeout, logger)
			gs.RegisterHook(func(ctx context.Context) error {
				return a.Close()
			})

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return gs.Run(ctx)
		},
	}
}
