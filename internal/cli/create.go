package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amgator/databucket-app/internal/data"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Tag        int64
	Properties string
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a record in a bucket",
		Long: `Create a data record with a JSON properties blob.

Example:
  databucket create --bucket goods --properties '{"status": "new", "weight": 12.5}'
  databucket create --bucket goods --tag 2 --properties '{"status": "new"}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Tag, "tag", 0, "tag id to classify the record")
	cmd.Flags().StringVar(&opts.Properties, "properties", "", "record properties as a JSON object")

	return cmd
}

func runCreate(opts *CreateOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	var props map[string]any
	if opts.Properties != "" {
		if err := json.Unmarshal([]byte(opts.Properties), &props); err != nil {
			return respondError(formatter, NewExitError(ExitCommandError,
				fmt.Sprintf("--properties is not a valid JSON object: %v", err)))
		}
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

	req := data.CreateRequest{Properties: props}
	if cmd.Flags().Changed("tag") {
		req.TagID = &opts.Tag
	}

	record, err := rt.svc.Create(ctx, scope, opts.caller(), req)
	if err != nil {
		return respondError(formatter, err)
	}

	if formatter.Format == "json" {
		// Re-read through the service so the payload matches the get shape.
		shaped, err := rt.svc.GetOne(ctx, scope, record.ID, nil)
		if err != nil {
			return respondError(formatter, err)
		}
		return formatter.Success(shaped)
	}
	fmt.Fprintf(formatter.Writer, "Created record %d\n", record.ID)
	return nil
}
