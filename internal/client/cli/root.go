package cli

import (
	"context"

	"github.com/dmitrijs2005/suitewaste/internal/client/config"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the suitewaste command tree. Without a subcommand
// it starts the interactive REPL.
func NewRootCommand() *cobra.Command {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	var cfgPath *string

	root := &cobra.Command{
		Use:           "suitewaste",
		Short:         "Offline-first SuiteWaste OS client",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.ApplyJSON(cfg, *cfgPath, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, cfg, false, func(ctx context.Context, a *App) error {
				return a.Run(ctx)
			})
		},
	}
	cfgPath = config.BindFlags(root.PersistentFlags(), cfg)

	root.AddCommand(
		&cobra.Command{
			Use:   "sync",
			Short: "Send queued changes to the server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, cfg, true, func(ctx context.Context, a *App) error {
					return a.Sync(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "pull [table...]",
			Short: "Copy server records into the local store",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, cfg, true, func(ctx context.Context, a *App) error {
					return a.Pull(ctx, args)
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show connection state and pending changes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, cfg, true, func(ctx context.Context, a *App) error {
					return a.Status(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete all local data, including unsynced changes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, cfg, true, func(ctx context.Context, a *App) error {
					return a.Clear(ctx)
				})
			},
		},
	)
	return root
}

// withApp opens the application for one command and closes it afterwards.
// When start is set the store is bootstrapped and the server probed first;
// Run does that itself.
func withApp(cmd *cobra.Command, cfg *config.Config, start bool, fn func(context.Context, *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := NewApp(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	if start {
		if err := app.Start(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, app)
}
