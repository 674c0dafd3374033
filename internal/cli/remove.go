package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:           "remove",
		Short:         "Drop a collection's backing table",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("remove drops the table permanently; re-run with --yes")
			}
			return runRemove(rootOpts, cmd)
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm dropping the table")

	return cmd
}

func runRemove(opts *RootOptions, cmd *cobra.Command) error {
	col, _, err := openCollection(opts)
	if err != nil {
		return err
	}
	defer col.Close()

	if err := col.Remove(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "collection removed")
	return nil
}
