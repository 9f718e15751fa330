package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/vault-inventory/internal/model"
	"github.com/vyrodovalexey/vault-inventory/internal/vault"
)

func newListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the items in the vault in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.newClient()
			if err != nil {
				return err
			}

			items, err := c.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				if items == nil {
					items = []model.Item{}
				}
				return writeJSON(out, items)
			}
			for _, item := range items {
				writeItem(out, item)
			}
			return nil
		},
	}
}

func newGetCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			c, err := opts.newClient()
			if err != nil {
				return err
			}

			item, err := c.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return opts.printItem(cmd.OutOrStdout(), item)
		},
	}
}

func newAddCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <value>",
		Short: "Insert a new item",
		Example: `  vaultctl add 1 97.88
  vaultctl add 2 50`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, value, err := parseIDValue(args)
			if err != nil {
				return err
			}

			c, err := opts.newClient()
			if err != nil {
				return err
			}

			item, err := c.Insert(cmd.Context(), id, value)
			if err != nil {
				return err
			}
			return opts.printItem(cmd.OutOrStdout(), item)
		},
	}
}

func newRevalueCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "revalue <id> <value>",
		Short: "Set a new value on an existing item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, value, err := parseIDValue(args)
			if err != nil {
				return err
			}

			c, err := opts.newClient()
			if err != nil {
				return err
			}

			item, err := c.Revalue(cmd.Context(), id, value)
			if err != nil {
				return err
			}
			return opts.printItem(cmd.OutOrStdout(), item)
		},
	}
}

func newRemoveCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove an item and print it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			c, err := opts.newClient()
			if err != nil {
				return err
			}

			item, err := c.Remove(cmd.Context(), id)
			if err != nil {
				return err
			}
			return opts.printItem(cmd.OutOrStdout(), item)
		},
	}
}

func (o *options) printItem(w io.Writer, item model.Item) error {
	if o.jsonOutput {
		return writeJSON(w, item)
	}
	writeItem(w, item)
	return nil
}

// writeItem prints an item in the same two-line form the vault renders.
func writeItem(w io.Writer, item model.Item) {
	fmt.Fprintf(w, "ID: %d\nValue: %s\n", item.ID, formatValue(item.Value))
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid item id %q: must be an integer", s)
	}
	return id, nil
}

func parseIDValue(args []string) (int64, float64, error) {
	id, err := parseID(args[0])
	if err != nil {
		return 0, 0, err
	}

	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value %q: must be a number", args[1])
	}
	if !vault.IsFinite(value) {
		return 0, 0, fmt.Errorf("invalid value %q: must be a finite number", args[1])
	}
	return id, value, nil
}
