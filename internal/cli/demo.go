package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/vault-inventory/internal/vault"
)

func newDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the reference vault scenario in-process",
		Long: `demo builds a local vault, inserts two items, prints the vault and its
total value, removes one item and finally looks it up again, printing the
resulting not-found error as "<name>:<TAB><message>".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd.OutOrStdout())
		},
	}
}

// runDemo prints the scenario to w. The expected not-found error is
// reported on w and does not fail the command.
func runDemo(w io.Writer) error {
	v := vault.New()

	for _, item := range []*vault.Item{
		vault.NewItem(1, 97.88),
		vault.NewItem(2, 50.0),
	} {
		if err := v.Insert(item); err != nil {
			return fmt.Errorf("demo insert: %w", err)
		}
	}

	printVault(w, v)

	removed, err := v.Remove(1)
	if err != nil {
		return fmt.Errorf("demo remove: %w", err)
	}
	fmt.Fprintf(w, "\nRemoved:\n%s\n\n", removed)

	printVault(w, v)

	if _, err := v.Find(1); err != nil {
		fmt.Fprintln(w)
		printError(w, err, false)
	}

	return nil
}

func printVault(w io.Writer, v *vault.Vault) {
	fmt.Fprintln(w, v.Render())
	fmt.Fprintf(w, "Total value: %s\n", formatValue(v.TotalValue()))
}
