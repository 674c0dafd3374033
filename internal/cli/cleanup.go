package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// CleanupOptions holds flags for the cleanup command.
type CleanupOptions struct {
	*RootOptions
	MinAge time.Duration
}

// NewCleanupCommand creates the cleanup command.
func NewCleanupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CleanupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "cleanup",
		Short:         "Purge tombstones older than a retention threshold",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.MinAge, "min-age", 14*24*time.Hour, "minimum tombstone age")

	return cmd
}

func runCleanup(opts *CleanupOptions, cmd *cobra.Command) error {
	col, _, err := openCollection(opts.RootOptions)
	if err != nil {
		return err
	}
	defer col.Close()

	ctx := cmd.Context()
	if err := col.Initialize(ctx); err != nil {
		return err
	}

	n, err := col.Cleanup(ctx, opts.MinAge)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return printJSON(cmd.OutOrStdout(), map[string]any{"purged": n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "purged %d tombstone(s)\n", n)
	return nil
}
