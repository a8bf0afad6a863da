package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/amgator/databucket-app/internal/data"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	targetFlags
	Page    int
	Limit   int
	Sort    string
	Columns []string
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Read records matching rules or a single record by id",
		Long: `Read records from a bucket.

With a positional id, returns that record. Otherwise returns one page of
records matching the supplied rules; with no rules at all, pages through
the whole bucket. A limit of 0 returns only the match count.

Example:
  databucket get --bucket goods 42
  databucket get --bucket goods --rules '{"$.status": "new"}' --limit 20
  databucket get --bucket goods --filter 3 --columns id,tagId,$.status`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, args, cmd)
		},
	}

	opts.targetFlags.register(cmd)
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.Limit, "limit", 25, "page size (0 = count only)")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort field, prefix with - for descending")
	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "columns to return ($.path for properties)")

	return cmd
}

func runGet(opts *GetOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	rt, err := opts.openRuntime(ctx)
	if err != nil {
		return respondError(formatter, err)
	}
	defer rt.Close()

	scope, err := rt.scope(ctx, opts.RootOptions)
	if err != nil {
		return respondError(formatter, err)
	}

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return respondError(formatter, NewExitError(ExitCommandError, fmt.Sprintf("invalid record id %q", args[0])))
		}
		record, err := rt.svc.GetOne(ctx, scope, id, opts.Columns)
		if err != nil {
			return respondError(formatter, err)
		}
		return outputRecord(formatter, record)
	}

	target, err := opts.target(ctx, rt, opts.Project)
	if err != nil {
		return respondError(formatter, err)
	}

	page, err := rt.svc.Get(ctx, scope, data.Query{
		Target:  target,
		Page:    opts.Page,
		Limit:   opts.Limit,
		Sort:    opts.Sort,
		Columns: opts.Columns,
	})
	if err != nil {
		return respondError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(page)
	}

	fmt.Fprintf(formatter.Writer, "Page %d of %d (%d record(s) total)\n",
		page.Page, page.TotalPages, page.Total)
	for _, rec := range page.Data {
		line, err := json.Marshal(rec)
		if err != nil {
			return respondError(formatter, err)
		}
		fmt.Fprintln(formatter.Writer, string(line))
	}
	return nil
}

// outputRecord prints a single projected record.
func outputRecord(formatter *OutputFormatter, record map[string]any) error {
	if formatter.Format == "json" {
		return formatter.Success(record)
	}
	line, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return respondError(formatter, err)
	}
	fmt.Fprintln(formatter.Writer, string(line))
	return nil
}
