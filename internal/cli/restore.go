package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/monalisamaguruwada102-web/studysync/internal/app"
)

func newRestoreCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file|backup-name>",
		Short: "Replace the local store with a file or a named backup",
		Long: "Restore reads a store document from the given path, or, when no such file\n" +
			"exists, restores the backup with that name. The current store is backed up\n" +
			"first.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			defer e.close()

			a, err := e.openApp(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.Close()) }()

			source := args[0]
			data, readErr := os.ReadFile(source)
			switch {
			case readErr == nil:
				err = a.Store.RestoreJSON(cmd.Context(), data)
			case errors.Is(readErr, os.ErrNotExist):
				err = a.Store.RestoreBackup(cmd.Context(), source)
			default:
				return fmt.Errorf("read %s: %w", source, readErr)
			}
			if err != nil {
				return fmt.Errorf("restore %s: %w", source, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s into %s\n", source, a.Store.Path())
			return nil
		},
	}
}
