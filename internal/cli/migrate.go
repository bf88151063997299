package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/syssam/signet/dialect/sql"
)

// MigrateOptions holds the flags of the migrate command.
type MigrateOptions struct {
	Driver  string
	DSN     string
	Timeout time.Duration
	Drop    bool
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{}
	cmd := &cobra.Command{
		Use:   "migrate <schema.yaml>",
		Short: "Create the tables of a schema file in a database",
		Long: `Connect to a database, resolve its dialect, and create the tables of a
schema file in one transaction, or drop them with --drop.

MySQL and MariaDB commit every schema statement implicitly, so a failure
there may leave part of the schema applied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts, opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Driver, "driver", "", "database/sql driver name (mysql, postgres, sqlite)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "data source name")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", time.Minute, "migration timeout")
	cmd.Flags().BoolVar(&opts.Drop, "drop", false, "drop the tables instead")
	_ = cmd.MarkFlagRequired("driver")
	_ = cmd.MarkFlagRequired("dsn")
	return cmd
}

func runMigrate(rootOpts *RootOptions, opts *MigrateOptions, path string, cmd *cobra.Command) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()
	drv, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return err
	}
	defer drv.Close()
	resolved, err := rootOpts.Resolver().Resolve(ctx, drv)
	if err != nil {
		return err
	}
	d, f, err := loadSchema(resolved, path, cmd)
	if err != nil {
		return err
	}
	tx, err := drv.Tx(ctx)
	if err != nil {
		return err
	}
	action := "created"
	if opts.Drop {
		action = "dropped"
		err = d.DropTables(ctx, tx, f.Tables)
	} else {
		err = d.CreateTables(ctx, tx, f.Tables)
	}
	if err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %d tables (%s)\n", action, len(f.Tables), d.Signet())
	return err
}
