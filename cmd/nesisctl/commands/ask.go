package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type prediction struct {
	Input string `json:"input"`
	Data  struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"data"`
}

func newAskCmd(opts *options) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the Q&A module a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"query": strings.Join(args, " ")}

			if raw {
				var out any
				if err := opts.client(cmd).Post(cmd.Context(), "qanda/predictions", body, &out); err != nil {
					return describeError(err)
				}
				return printJSON(cmd.OutOrStdout(), out)
			}

			var out prediction
			if err := opts.client(cmd).Post(cmd.Context(), "qanda/predictions", body, &out); err != nil {
				return describeError(err)
			}
			if len(out.Data.Choices) == 0 {
				return fmt.Errorf("the Q&A module returned no answer")
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Data.Choices[0].Message.Content)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the full prediction document")

	return cmd
}
