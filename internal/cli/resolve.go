package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/syssam/signet/dialect/sql"
)

// ResolveOptions holds the flags of the resolve command.
type ResolveOptions struct {
	Driver  string
	DSN     string
	Timeout time.Duration
}

// Resolution describes the dialect resolved for a connection.
type Resolution struct {
	Server        string `yaml:"server"`
	Version       string `yaml:"version"`
	Dialect       string `yaml:"dialect"`
	QuoteChar     string `yaml:"quote_char"`
	Placeholder   string `yaml:"placeholder"`
	MaxInListSize int    `yaml:"max_in_list_size"`
	KeyCapture    string `yaml:"key_capture"`
	GeneratedKey  string `yaml:"generated_key_column,omitempty"`
	MaxRetries    int    `yaml:"max_retries"`
	RetryDelay    string `yaml:"retry_delay"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the dialect of a database connection",
		Long: `Connect to a database, read its product name and version, and print
the dialect and settings signet resolves for it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(rootOpts, opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Driver, "driver", "", "database/sql driver name (mysql, postgres, sqlite)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "data source name")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "connection timeout")
	_ = cmd.MarkFlagRequired("driver")
	_ = cmd.MarkFlagRequired("dsn")
	return cmd
}

func runResolve(rootOpts *RootOptions, opts *ResolveOptions, cmd *cobra.Command) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()
	drv, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return err
	}
	defer drv.Close()
	meta, err := drv.Metadata(ctx)
	if err != nil {
		return err
	}
	d, err := rootOpts.Resolver().Resolve(ctx, drv)
	if err != nil {
		return err
	}
	s := d.Settings()
	out, err := yaml.Marshal(Resolution{
		Server:        meta.Signet().String(),
		Version:       meta.Version,
		Dialect:       d.Signet().String(),
		QuoteChar:     string(s.QuoteChar),
		Placeholder:   s.Placeholder(1),
		MaxInListSize: s.MaxInListSize,
		KeyCapture:    d.KeyCapture().String(),
		GeneratedKey:  s.GeneratedKeyColumn,
		MaxRetries:    s.Retry.MaxRetries,
		RetryDelay:    s.Retry.Delay.String(),
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))
	return err
}
