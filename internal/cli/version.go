package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/feedwarden/internal/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), version.Get())
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "feedwarden %s\n", version.String())
			return err
		},
	}
}
