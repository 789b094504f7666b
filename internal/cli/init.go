package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/monalisamaguruwada102-web/studysync/internal/config"
	"github.com/monalisamaguruwada102-web/studysync/internal/localstore"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and the local store",
		Long: "Write a default config.yaml if none exists, then create the local store\n" +
			"file with every collection present.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			defer e.close()

			created, err := config.WriteDefault(e.configDir, e.cfg)
			if err != nil {
				return err
			}

			store := localstore.New(localstore.Config{
				Dir:            e.cfg.DataDir,
				Name:           e.cfg.StoreName,
				BackupDir:      e.cfg.BackupDir,
				BackupInterval: e.cfg.BackupInterval,
				MaxBackups:     e.cfg.MaxBackups,
			}, e.logger)
			if err := store.Attach(); err != nil {
				return fmt.Errorf("initialize local store: %w", err)
			}
			if err := store.Detach(); err != nil {
				return fmt.Errorf("finalize local store: %w", err)
			}

			configPath := filepath.Join(e.configDir, config.FileName)
			if opts.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"config":        configPath,
					"configCreated": created,
					"store":         store.Path(),
				})
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "local store ready at %s\n", store.Path())
			return nil
		},
	}
}
