package cli

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syssam/signet/dialect"
	"github.com/syssam/signet/dialect/rdbms"
	"github.com/syssam/signet/internal/schemafile"
)

// DDLOptions holds the flags of the ddl command.
type DDLOptions struct {
	Vendor  string
	Version string
	Drop    bool
}

// NewDDLCommand creates the ddl command.
func NewDDLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DDLOptions{}
	cmd := &cobra.Command{
		Use:   "ddl <schema.yaml>",
		Short: "Print the schema statements of a schema file",
		Long: `Print the create statements of the tables of a schema file in the
dialect of the given vendor and version, or the drop statements with --drop.

Without --version the newest dialect of the vendor is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDDL(rootOpts, opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Vendor, "vendor", "", "database vendor (mysql, mariadb, postgres, sqlite)")
	cmd.Flags().StringVar(&opts.Version, "version", "", "server version, e.g. 8.0")
	cmd.Flags().BoolVar(&opts.Drop, "drop", false, "print drop statements")
	_ = cmd.MarkFlagRequired("vendor")
	return cmd
}

func runDDL(rootOpts *RootOptions, opts *DDLOptions, path string, cmd *cobra.Command) error {
	s, err := targetSignet(opts.Vendor, opts.Version)
	if err != nil {
		return err
	}
	resolved, err := rootOpts.Resolver().ResolveSignet(s)
	if err != nil {
		return err
	}
	d, f, err := loadSchema(resolved, path, cmd)
	if err != nil {
		return err
	}
	stmts := d.DDL().DropSchema(f.Tables)
	if !opts.Drop {
		if stmts, err = d.DDL().CreateSchema(f.Tables); err != nil {
			return err
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "-- %s\n", d.Signet())
	for _, stmt := range stmts {
		b.WriteString(stmt)
		b.WriteString(";\n")
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), b.String())
	return err
}

// loadSchema loads the schema file at path and validates it against a copy
// of d carrying the explicit column types of the file.
func loadSchema(d *rdbms.Dialect, path string, cmd *cobra.Command) (*rdbms.Dialect, *schemafile.File, error) {
	f, err := schemafile.Open(path)
	if err != nil {
		return nil, nil, err
	}
	d = d.Clone()
	f.Apply(d.Types())
	res := f.Validate(d.Types())
	for _, w := range res.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", w)
	}
	if res.HasErrors() {
		return nil, nil, fmt.Errorf("invalid schema %s:\n%s", path, res)
	}
	return d, f, nil
}

// targetSignet returns the signet of the vendor and version flags. An
// empty version stands for the newest release, which only version floors
// match.
func targetSignet(vendor, version string) (dialect.Signet, error) {
	name, ok := rdbms.VendorName(vendor)
	if !ok {
		return dialect.Signet{}, fmt.Errorf("unknown vendor %q", vendor)
	}
	if version == "" {
		return dialect.NewSignet(name, math.MaxInt32, 0), nil
	}
	major, minor, err := dialect.ParseVersion(version)
	if err != nil {
		return dialect.Signet{}, err
	}
	return dialect.NewSignet(name, major, minor), nil
}
