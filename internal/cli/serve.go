package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/monalisamaguruwada102-web/studysync/internal/app"
	"github.com/monalisamaguruwada102-web/studysync/internal/server"
	"github.com/monalisamaguruwada102-web/studysync/pkg/studysync"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with the reconciliation loop and ops HTTP server",
		Long: "Attach the local store, start periodic reconciliation, and serve /healthz,\n" +
			"/readyz, /metrics and the /admin endpoints until SIGINT or SIGTERM. On\n" +
			"shutdown a final backup and reconciliation pass run before exit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			defer e.close()
			if addr != "" {
				e.cfg.HTTPAddr = addr
			}

			a, err := app.New(cmd.Context(), e.cfg, e.logger, app.Options{Exit: os.Exit})
			if err != nil {
				return err
			}
			srv := server.New(e.cfg.HTTPAddr, server.Deps{
				Backups:    a.Store,
				Reconciler: a.Reconciler,
				Lifecycle:  a.Lifecycle,
				Remote:     a.Remote,
				Version:    studysync.Version,
			}, e.logger)
			return a.Run(cmd.Context(), srv.Run)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "ops HTTP listen address (default from http_addr)")
	return cmd
}
