// Package cli holds the clerk command tree.
package cli

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"clerk/internal/app"
	"clerk/internal/platform/config"
	"clerk/internal/platform/logger"
)

// env is shared by every subcommand once the root has loaded configuration.
type env struct {
	envDir   string
	logLevel string
	cfg      *config.Config
	logger   *slog.Logger
}

// NewRootCommand builds the clerk command tree.
func NewRootCommand() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "clerk",
		Short:         "Reconcile onboarding documents and decide Accept or Reject",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(e.envDir)
			if err != nil {
				return err
			}
			if e.logLevel != "" {
				cfg.Log.Level = e.logLevel
			}
			e.cfg = cfg
			e.logger = logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&e.envDir, "env-dir", ".", "directory holding an optional .env file")
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "override LOG_LEVEL")

	root.AddCommand(
		newServeCommand(e),
		newEvaluateCommand(e),
		newBatchCommand(e),
		newPlayCommand(e),
	)
	return root
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// open wires the application on a private metrics registry.
func (e *env) open(ctx context.Context) (*app.App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return app.New(ctx, e.cfg, e.logger, app.WithRegistry(reg))
}
