package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monalisamaguruwada102-web/studysync/internal/app"
)

func newReconcileCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Push unsynced local records to the remote store once",
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

			res, _ := a.Reconciler.RunOnce(cmd.Context())
			if opts.jsonMode {
				return printJSON(cmd.OutOrStdout(), res)
			}

			out := cmd.OutOrStdout()
			if res.Skipped {
				fmt.Fprintln(out, "remote store not configured; nothing to do")
				return nil
			}
			fmt.Fprintf(out, "checked %d, synced %d, failed %d\n", res.Checked, res.Synced, len(res.Failures))
			for _, f := range res.Failures {
				fmt.Fprintf(out, "  %s/%s: %s\n", f.Collection, f.ID, f.Reason)
			}
			return nil
		},
	}
}
