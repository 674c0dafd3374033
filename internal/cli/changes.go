package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/docsql/internal/store"
)

// ChangesOptions holds flags for the changes command.
type ChangesOptions struct {
	*RootOptions
	Since string
	Limit int
}

// NewChangesCommand creates the changes command.
func NewChangesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChangesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Read the change feed from a checkpoint",
		Long: `Read documents written since a checkpoint, in id order, including
tombstones. Prints the new checkpoint to resume from.

  docsql changes --since '{"lastId":"r1","updatedAt":0}' --limit 100`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChanges(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Since, "since", "", "checkpoint JSON to resume from")
	cmd.Flags().IntVar(&opts.Limit, "limit", 100, "maximum documents to return")

	return cmd
}

func runChanges(opts *ChangesOptions, cmd *cobra.Command) error {
	var cp *store.Checkpoint
	if opts.Since != "" {
		cp = &store.Checkpoint{}
		if err := json.Unmarshal([]byte(opts.Since), cp); err != nil {
			return fmt.Errorf("invalid --since checkpoint: %w", err)
		}
	}

	col, _, err := openCollection(opts.RootOptions)
	if err != nil {
		return err
	}
	defer col.Close()

	ctx := cmd.Context()
	if err := col.Initialize(ctx); err != nil {
		return err
	}

	docs, next, err := col.ChangesSince(ctx, cp, opts.Limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return printJSON(out, map[string]any{
			"documents":  documentsJSON(docs),
			"checkpoint": next,
		})
	}

	if err := printDocuments(out, opts.Format, docs); err != nil {
		return err
	}
	if next != nil {
		cpJSON, err := json.Marshal(next)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "checkpoint: %s\n", cpJSON)
	}
	return nil
}
