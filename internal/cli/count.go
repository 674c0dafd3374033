package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/docsql/internal/selector"
)

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "count [selector-json]",
		Short:         "Count live documents matching a selector",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runCount(opts *RootOptions, args []string, cmd *cobra.Command) error {
	var sel selector.Condition
	if len(args) == 1 {
		parsed, err := selector.ParseSelector([]byte(args[0]))
		if err != nil {
			return err
		}
		sel = parsed
	}

	col, _, err := openCollection(opts)
	if err != nil {
		return err
	}
	defer col.Close()

	ctx := cmd.Context()
	if err := col.Initialize(ctx); err != nil {
		return err
	}

	n, err := col.Count(ctx, sel)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return printJSON(cmd.OutOrStdout(), map[string]any{"count": n})
	}
	fmt.Fprintln(cmd.OutOrStdout(), n)
	return nil
}
