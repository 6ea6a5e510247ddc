package commands

import (
	"github.com/spf13/cobra"
)

func newConfigCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the console's public configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if err := opts.client(cmd).Get(cmd.Context(), "config", nil, &out); err != nil {
				return describeError(err)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
