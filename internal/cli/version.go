package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carelink/signal-relay/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the relayctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "relayctl %s\n", version.Version)
		},
	}
}
