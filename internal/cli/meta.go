package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/amgator/databucket-app/internal/store"
)

// MetaOptions holds flags for the bucket and tag command groups.
type MetaOptions struct {
	*RootOptions
	Description string
}

// NewBucketCommand creates the bucket command group.
func NewBucketCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MetaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bucket",
		Short: "Manage buckets",
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a bucket in the project",
		Long: `Create a bucket. Bucket names are unique within a project.

Example:
  databucket bucket create goods --description "incoming goods"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBucketCreate(opts, args[0], cmd)
		},
	}
	create.Flags().StringVar(&opts.Description, "description", "", "bucket description")
	cmd.AddCommand(create)

	return cmd
}

func runBucketCreate(opts *MetaOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	rt, err := opts.openRuntime(ctx)
	if err != nil {
		return respondError(formatter, err)
	}
	defer rt.Close()

	id, err := rt.store.CreateBucket(ctx, store.Bucket{
		ProjectID:   opts.Project,
		Name:        name,
		Description: opts.Description,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		CreatedBy:   opts.User,
	})
	if err != nil {
		return respondError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"id": id, "name": name})
	}
	fmt.Fprintf(formatter.Writer, "Created bucket %q as %d\n", name, id)
	return nil
}

// NewTagCommand creates the tag command group.
func NewTagCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MetaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tags within a bucket",
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a tag in the bucket",
		Long: `Create a tag. Tag names are unique within a bucket.

Example:
  databucket tag create urgent --bucket goods`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTagCreate(opts, args[0], cmd)
		},
	}
	create.Flags().StringVar(&opts.Description, "description", "", "tag description")
	cmd.AddCommand(create)

	list := &cobra.Command{
		Use:           "list",
		Short:         "List tags in the bucket",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTagList(opts, cmd)
		},
	}
	cmd.AddCommand(list)

	return cmd
}

func runTagCreate(opts *MetaOptions, name string, cmd *cobra.Command) error {
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

	id, err := rt.store.CreateTag(ctx, store.Tag{
		ProjectID:   scope.ProjectID,
		BucketID:    scope.BucketID,
		Name:        name,
		Description: opts.Description,
	})
	if err != nil {
		return respondError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"id": id, "name": name})
	}
	fmt.Fprintf(formatter.Writer, "Created tag %q as %d\n", name, id)
	return nil
}

func runTagList(opts *MetaOptions, cmd *cobra.Command) error {
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

	tags, err := rt.store.ListTags(ctx, scope.ProjectID, scope.BucketID)
	if err != nil {
		return respondError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(tags)
	}
	if len(tags) == 0 {
		fmt.Fprintln(formatter.Writer, "No tags")
		return nil
	}
	for _, tag := range tags {
		fmt.Fprintf(formatter.Writer, "%d\t%s\t%s\n", tag.ID, tag.Name, tag.Description)
	}
	return nil
}
