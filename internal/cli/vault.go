package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTotalCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "total",
		Short: "Print the item count and total value of the vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.newClient()
			if err != nil {
				return err
			}

			summary, err := c.Total(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, summary)
			}
			fmt.Fprintf(out, "Items: %d\nTotal value: %s\n", summary.Count, formatValue(summary.TotalValue))
			return nil
		},
	}
}

func newRenderCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Print the text rendering of the vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.newClient()
			if err != nil {
				return err
			}

			text, err := c.Render(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, map[string]string{"render": text})
			}
			fmt.Fprintln(out, text)
			return nil
		},
	}
}
