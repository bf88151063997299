// Package cli implements the signet command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/signet/dialect/rdbms"

	// Vendor dialects.
	_ "github.com/syssam/signet/dialect/rdbms/mariadb"
	_ "github.com/syssam/signet/dialect/rdbms/mysql"
	_ "github.com/syssam/signet/dialect/rdbms/postgres"
	_ "github.com/syssam/signet/dialect/rdbms/sqlite"
)

// Version information (set by build flags)
var (
	version = "dev"
	commit  = "none"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config  string // Path of a YAML settings overrides file.
	Verbose bool

	logger    *slog.Logger
	overrides rdbms.Overrides
}

// Resolver returns a resolver over the registered dialects with the
// loaded overrides applied.
func (o *RootOptions) Resolver() *rdbms.Resolver {
	return rdbms.DefaultResolver(rdbms.WithOverrides(o.overrides), rdbms.WithResolverLogger(o.logger))
}

// NewRootCommand creates the root command of the signet CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "signet",
		Short: "Inspect SQL dialects and render schema statements",
		Long: `signet resolves the SQL dialect of a database connection from its
vendor and version, and renders the schema statements of a dialect.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			if opts.Config == "" {
				return nil
			}
			f, err := os.Open(opts.Config)
			if err != nil {
				return err
			}
			defer f.Close()
			if opts.overrides, err = rdbms.LoadOverrides(f); err != nil {
				return fmt.Errorf("%s: %w", opts.Config, err)
			}
			opts.logger.Debug("loaded settings overrides", "path", opts.Config, "vendors", len(opts.overrides))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "YAML file overriding vendor settings")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewDDLCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewVendorsCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "signet %s (commit: %s)\n", version, commit)
		},
	}
}
