package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/amgator/databucket-app/internal/rule"
	"github.com/amgator/databucket-app/internal/store"
)

// FiltersOptions holds flags for the filters command group.
type FiltersOptions struct {
	*RootOptions
	Name        string
	Description string
	Rules       string
}

// filterView is the wire shape of a saved filter. Criteria is re-expanded
// from the canonical encoding so callers see the tree, not a blob.
type filterView struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Criteria    json.RawMessage `json:"criteria"`
	CreatedAt   string          `json:"createdAt"`
	CreatedBy   string          `json:"createdBy"`
	ModifiedAt  string          `json:"modifiedAt,omitempty"`
	ModifiedBy  string          `json:"modifiedBy,omitempty"`
}

// NewFiltersCommand creates the filters command group.
func NewFiltersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FiltersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "filters",
		Short: "Manage saved filters",
		Long: `Saved filters are named rule trees scoped to a project. Record commands
reference them with --filter <id>.`,
	}

	cmd.AddCommand(newFiltersSaveCommand(opts))
	cmd.AddCommand(newFiltersListCommand(opts))
	cmd.AddCommand(newFiltersShowCommand(opts))
	cmd.AddCommand(newFiltersDeleteCommand(opts))
	cmd.AddCommand(newFiltersLoadCommand(opts))

	return cmd
}

func newFiltersSaveCommand(opts *FiltersOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a named filter",
		Long: `Save a rule tree under a name. The tree is validated and stored in the
canonical encoding, so loading it back never re-parses a wire format.

Example:
  databucket filters save --name fresh --rules '{"$.status": "new"}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFiltersSave(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "filter name (unique per project)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "filter description")
	cmd.Flags().StringVar(&opts.Rules, "rules", "", "rule tree as JSON (server encoding)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("rules")
	return cmd
}

func runFiltersSave(opts *FiltersOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	var rules map[string]any
	if err := json.Unmarshal([]byte(opts.Rules), &rules); err != nil {
		return respondError(formatter, NewExitError(ExitCommandError,
			fmt.Sprintf("--rules is not valid JSON: %v", err)))
	}
	node, err := rule.DecodeRules(rules)
	if err != nil {
		return respondError(formatter, err)
	}
	criteria, err := rule.MarshalCanonical(node)
	if err != nil {
		return respondError(formatter, err)
	}

	rt, err := opts.openRuntime(ctx)
	if err != nil {
		return respondError(formatter, err)
	}
	defer rt.Close()

	dup, err := findDuplicateFilter(ctx, rt, opts.Project, node)
	if err != nil {
		return respondError(formatter, err)
	}
	if dup != nil {
		return respondError(formatter, NewExitError(ExitCommandError,
			fmt.Sprintf("filter %q (%d) already stores these rules", dup.Name, dup.ID)))
	}

	now := time.Now().UTC().Format(time.RFC3339)
	id, err := rt.store.SaveFilter(ctx, store.Filter{
		ProjectID:   opts.Project,
		Name:        opts.Name,
		Description: opts.Description,
		Criteria:    criteria,
		CreatedAt:   now,
		CreatedBy:   opts.User,
	})
	if err != nil {
		return respondError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"id": id, "name": opts.Name})
	}
	fmt.Fprintf(formatter.Writer, "Saved filter %q as %d\n", opts.Name, id)
	return nil
}

// findDuplicateFilter returns the live filter already storing the given rule
// tree, if any. Identity is the content hash of the canonical encoding; a
// hash match is confirmed structurally before it counts.
func findDuplicateFilter(ctx context.Context, rt *runtime, projectID int64, node rule.Node) (*store.Filter, error) {
	hash, err := rule.Hash(node)
	if err != nil {
		return nil, err
	}
	filters, err := rt.store.ListFilters(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, f := range filters {
		existing, err := rule.UnmarshalCanonical(f.Criteria)
		if err != nil {
			// A corrupt stored filter cannot duplicate anything.
			continue
		}
		existingHash, err := rule.Hash(existing)
		if err != nil || existingHash != hash {
			continue
		}
		if rule.Equal(node, existing) {
			return &f, nil
		}
	}
	return nil, nil
}

func newFiltersListCommand(opts *FiltersOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List saved filters in the project",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFiltersList(opts, cmd)
		},
	}
}

func runFiltersList(opts *FiltersOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	rt, err := opts.openRuntime(ctx)
	if err != nil {
		return respondError(formatter, err)
	}
	defer rt.Close()

	filters, err := rt.store.ListFilters(ctx, opts.Project)
	if err != nil {
		return respondError(formatter, err)
	}

	if formatter.Format == "json" {
		views := make([]filterView, 0, len(filters))
		for _, f := range filters {
			views = append(views, viewFilter(f))
		}
		return formatter.Success(views)
	}

	if len(filters) == 0 {
		fmt.Fprintln(formatter.Writer, "No saved filters")
		return nil
	}
	for _, f := range filters {
		fmt.Fprintf(formatter.Writer, "%d\t%s\t%s\n", f.ID, f.Name, f.Description)
	}
	return nil
}

func newFiltersShowCommand(opts *FiltersOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <id>",
		Short:         "Show a saved filter",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFiltersShow(opts, args[0], cmd)
		},
	}
}

func runFiltersShow(opts *FiltersOptions, arg string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return respondError(formatter, NewExitError(ExitCommandError, fmt.Sprintf("invalid filter id %q", arg)))
	}

	rt, err := opts.openRuntime(ctx)
	if err != nil {
		return respondError(formatter, err)
	}
	defer rt.Close()

	f, err := rt.store.GetFilter(ctx, opts.Project, id)
	if err != nil {
		return respondError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(viewFilter(f))
	}
	fmt.Fprintf(formatter.Writer, "%d\t%s\t%s\n%s\n", f.ID, f.Name, f.Description, f.Criteria)
	return nil
}

func newFiltersDeleteCommand(opts *FiltersOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a saved filter",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFiltersDelete(opts, args[0], cmd)
		},
	}
}

func runFiltersDelete(opts *FiltersOptions, arg string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return respondError(formatter, NewExitError(ExitCommandError, fmt.Sprintf("invalid filter id %q", arg)))
	}

	rt, err := opts.openRuntime(ctx)
	if err != nil {
		return respondError(formatter, err)
	}
	defer rt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	if err := rt.store.DeleteFilter(ctx, opts.Project, id, now, opts.User); err != nil {
		return respondError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"deleted": id})
	}
	fmt.Fprintf(formatter.Writer, "Deleted filter %d\n", id)
	return nil
}

func newFiltersLoadCommand(opts *FiltersOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <dir>",
		Short: "Load filter definitions from CUE files",
		Long: `Load every filter defined in the CUE files under a directory and save
them into the project. Definitions live under a top-level "filter" struct;
see the loader documentation for the expected shape.

Example:
  databucket filters load ./filters`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFiltersLoad(opts, args[0], cmd)
		},
	}
}

func runFiltersLoad(opts *FiltersOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	result, loadErrors := LoadFilterDefs(dir, LoadModeCollectAll)
	if result == nil && len(loadErrors) > 0 {
		return respondError(formatter, loadErrors[0])
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, dir)
	if len(loadErrors) > 0 {
		return outputLoadErrors(formatter, loadErrors)
	}

	rt, err := opts.openRuntime(ctx)
	if err != nil {
		return respondError(formatter, err)
	}
	defer rt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	saved := make([]map[string]any, 0, len(result.Filters))
	for _, def := range result.Filters {
		node, err := rule.UnmarshalCanonical(def.Criteria)
		if err != nil {
			return respondError(formatter, fmt.Errorf("loading filter %q: %w", def.Name, err))
		}
		dup, err := findDuplicateFilter(ctx, rt, opts.Project, node)
		if err != nil {
			return respondError(formatter, err)
		}
		if dup != nil {
			formatter.VerboseLog("Skipped filter %q: filter %q (%d) already stores these rules",
				def.Name, dup.Name, dup.ID)
			continue
		}
		id, err := rt.store.SaveFilter(ctx, store.Filter{
			ProjectID:   opts.Project,
			Name:        def.Name,
			Description: def.Description,
			Criteria:    def.Criteria,
			CreatedAt:   now,
			CreatedBy:   opts.User,
		})
		if err != nil {
			return respondError(formatter, fmt.Errorf("saving filter %q: %w", def.Name, err))
		}
		formatter.VerboseLog("Saved filter %q as %d", def.Name, id)
		saved = append(saved, map[string]any{"id": id, "name": def.Name})
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"saved": saved})
	}
	fmt.Fprintf(formatter.Writer, "Saved %d filter(s)\n", len(saved))
	return nil
}

// outputLoadErrors prints every load error and fails the command.
func outputLoadErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, _ := ClassifyError(err)
			cliErrors[i] = CLIError{Code: code, Message: err.Error()}
		}
		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("loading filters failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "Loading filters failed")
	for _, err := range errs {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		code, _ := ClassifyError(err)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", code, err.Error())
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("loading filters failed with %d error(s)", len(errs)))
}

// viewFilter expands a stored filter into its wire shape.
func viewFilter(f store.Filter) filterView {
	return filterView{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Criteria:    json.RawMessage(f.Criteria),
		CreatedAt:   f.CreatedAt,
		CreatedBy:   f.CreatedBy,
		ModifiedAt:  f.ModifiedAt,
		ModifiedBy:  f.ModifiedBy,
	}
}
