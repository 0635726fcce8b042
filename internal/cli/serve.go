package cli

import (
	"github.com/spf13/cobra"

	"clerk/internal/platform/httpserver"
)

func newServeCommand(e *env) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the decision API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				e.cfg.Server.Addr = addr
			}
			a, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			srv := httpserver.New(e.cfg.Server.Addr, a.Handler())
			return httpserver.Run(cmd.Context(), srv, e.cfg.Server.ShutdownTimeout, e.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides SERVER_ADDR")
	return cmd
}
