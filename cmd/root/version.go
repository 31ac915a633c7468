package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cropwise/kisan/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "kisan version %s (commit %s)\n", version.Version, version.Commit)
			return err
		},
	}
}
