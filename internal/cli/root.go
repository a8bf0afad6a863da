package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config  string // path to a YAML config file (optional)
	DB      string // SQLite database path, overrides the config file
	Project int64  // project scope for every operation
	Bucket  string // bucket name within the project
	User    string // username stamped on audit fields and reservations
	Admin   bool   // grants the reserve target-owner override
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the databucket CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "databucket",
		Short: "Databucket - rule-driven structured data store",
		Long: "A multi-tenant store for tagged JSON records with rule-tree queries\n" +
			"and atomic reservations.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Project < 1 {
				return fmt.Errorf("invalid project %d: must be a positive id", opts.Project)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().Int64Var(&opts.Project, "project", 1, "project id")
	cmd.PersistentFlags().StringVar(&opts.Bucket, "bucket", "", "bucket name")
	cmd.PersistentFlags().StringVar(&opts.User, "user", "anonymous", "username for audit fields")
	cmd.PersistentFlags().BoolVar(&opts.Admin, "admin", false, "run with admin privileges")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewModifyCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewReserveCommand(opts))
	cmd.AddCommand(NewFiltersCommand(opts))
	cmd.AddCommand(NewBucketCommand(opts))
	cmd.AddCommand(NewTagCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
