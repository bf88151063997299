package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/signet/dialect/rdbms"
)

// NewVendorsCommand creates the vendors command.
func NewVendorsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "vendors",
		Short: "List the registered dialects in resolution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := rootOpts.Resolver()
			for _, e := range rdbms.Entries() {
				d, err := e.Dialect()
				if err != nil {
					return err
				}
				// Resolve through the resolver to show the overridden limits.
				if d, err = r.ResolveSignet(d.Signet()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s keys=%-14s max_in_list=%d\n", e.Name, d.KeyCapture(), d.MaxInListSize())
			}
			return nil
		},
	}
}
