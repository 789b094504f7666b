package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monalisamaguruwada102-web/studysync/pkg/studysync"
)

const modulePath = "github.com/monalisamaguruwada102-web/studysync"

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the studysync version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version": studysync.Version,
					"module":  modulePath,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "studysync v%s\nmodule: %s\n", studysync.Version, modulePath)
			return nil
		},
	}
}
