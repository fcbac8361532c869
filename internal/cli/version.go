package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yinkun-ui/yinkun/internal/api"
)

const modulePath = "github.com/yinkun-ui/yinkun"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the yinkun version",
		Args:  cobra.NoArgs,
		// Overrides the root hook; version needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "yinkun v%s\nmodule: %s\n", api.Version, modulePath)
			return nil
		},
	}
}
