package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monalisamaguruwada102-web/studysync/internal/app"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the remote schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			defer e.close()

			if err := app.Migrate(e.cfg.Remote, e.logger); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "remote schema up to date (%s)\n", e.cfg.Remote.Backend)
			return nil
		},
	}
}
