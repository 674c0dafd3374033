package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/docsql/internal/selector"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Sort  []string
	Skip  int
	Limit int
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [selector-json]",
		Short: "Run a selector query against a collection",
		Long: `Run a selector query against a collection.

The selector uses the JSON syntax, e.g.:
  docsql query '{"age": {"$gte": 30}, "categoryId": {"$exists": true}}'

Omitting the selector matches every live document.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Sort, "sort", nil, "sort keys, e.g. name or name:desc")
	cmd.Flags().IntVar(&opts.Skip, "skip", -1, "rows to skip")
	cmd.Flags().IntVar(&opts.Limit, "limit", -1, "maximum rows to return")

	return cmd
}

func runQuery(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	q, err := buildQuery(opts, args)
	if err != nil {
		return err
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

	docs, err := col.Query(ctx, q)
	if err != nil {
		return err
	}
	return printDocuments(cmd.OutOrStdout(), opts.Format, docs)
}

func buildQuery(opts *QueryOptions, args []string) (selector.Query, error) {
	var sel selector.Condition
	if len(args) == 1 {
		parsed, err := selector.ParseSelector([]byte(args[0]))
		if err != nil {
			return selector.Query{}, err
		}
		sel = parsed
	}

	q := selector.NewQuery(sel)
	q.Skip = opts.Skip
	q.Limit = opts.Limit

	for _, spec := range opts.Sort {
		field, dir, found := strings.Cut(spec, ":")
		sf := selector.SortField{Field: field}
		if found {
			switch dir {
			case "asc":
			case "desc":
				sf.Descending = true
			default:
				return selector.Query{}, fmt.Errorf("invalid sort direction %q in %q", dir, spec)
			}
		}
		q.Sort = append(q.Sort, sf)
	}

	return q, nil
}
