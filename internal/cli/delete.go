package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	targetFlags
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete records matching rules or ids",
		Long: `Delete every record matching the target. An empty target is rejected
to keep a missing flag from emptying the bucket.

Example:
  databucket delete --bucket goods --id 42 --id 43
  databucket delete --bucket goods --rules '{"$.status": "stale"}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, cmd)
		},
	}

	opts.targetFlags.register(cmd)

	return cmd
}

func runDelete(opts *DeleteOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	if len(opts.IDs) == 0 && opts.FilterID == 0 &&
		opts.Rules == "" && opts.Logic == "" && opts.Conditions == "" {
		return respondError(formatter, NewExitError(ExitCommandError,
			"refusing to delete the whole bucket: give --id, --rules, --logic, --conditions, or --filter"))
	}

	rt, err := opts.openRuntime(ctx)
	if err != nil {
		return respondError(formatter, err)
	}
	defer rt.Close()

	scope, err := rt.scope(ctx, opts.RootOptions)
	if err != nil {
		return respondError(formatter, err)
	}

	target, err := opts.target(ctx, rt, opts.Project)
	if err != nil {
		return respondError(formatter, err)
	}

	rows, err := rt.svc.Delete(ctx, scope, opts.caller(), target)
	if err != nil {
		return respondError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"deleted": rows})
	}
	fmt.Fprintf(formatter.Writer, "Deleted %d record(s)\n", rows)
	return nil
}
