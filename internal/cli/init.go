package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and storage",
		Long:  "Create the configuration and data directories, write a default config.yaml and initialize the storage backend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
				return sysError(fmt.Errorf("create data directory: %w", err))
			}

			st, err := openStores(cmd.Context(), a.cfg, a.commandLogger(cmd))
			if err != nil {
				return sysError(fmt.Errorf("initialize storage: %w", err))
			}
			if err := st.Close(); err != nil {
				return sysError(fmt.Errorf("finalize storage: %w", err))
			}

			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"backend":  a.cfg.Backend,
					"data_dir": a.cfg.DataDir,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "yinkun initialized (backend: %s, data: %s)\n", a.cfg.Backend, a.cfg.DataDir)
			return nil
		},
	}
}
