package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ametnes/nesis-console/pkg/client"
	"github.com/spf13/cobra"
)

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the console and its upstream dependencies",
		Long:  "Run the console's extended health check and report each dependency",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Checking console at %s\n", opts.url)

			status, err := opts.client(cmd).Health(cmd.Context(), true)
			var apiErr *client.Error
			if errors.As(err, &apiErr) && len(apiErr.Body) > 0 {
				_ = json.Unmarshal(apiErr.Body, &status)
			} else if err != nil {
				return fmt.Errorf("failed to reach console: %w", err)
			}

			if checks, ok := status["checks"].(map[string]any); ok {
				names := make([]string, 0, len(checks))
				for name := range checks {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					result := checks[name]
					mark := "✓"
					if result != "healthy" {
						mark = "✗"
					}
					fmt.Fprintf(out, "%s %s: %v\n", mark, name, result)
				}
			}

			if err != nil {
				return fmt.Errorf("console is %v", status["status"])
			}
			fmt.Fprintln(out, "\n✓ Console is healthy")
			return nil
		},
	}
}
