package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/monalisamaguruwada102-web/studysync/internal/app"
)

func newBackupCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create and list local store backups",
	}
	cmd.AddCommand(newBackupCreateCmd(opts), newBackupListCmd(opts))
	return cmd
}

func newBackupCreateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Back up the local store now",
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

			path, err := a.Store.CreateBackup(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{"path": path})
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newBackupListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
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

			infos, err := a.Store.ListBackups()
			if err != nil {
				return err
			}
			if opts.jsonMode {
				return printJSON(cmd.OutOrStdout(), infos)
			}
			if len(infos) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no backups in %s\n", a.Store.BackupDir())
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCREATED\tSIZE")
			for _, b := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", b.Name, b.CreatedAt.Format(time.RFC3339), b.Size)
			}
			return tw.Flush()
		},
	}
}
