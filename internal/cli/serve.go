package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/yinkun-ui/yinkun/internal/api"
	"github.com/yinkun-ui/yinkun/internal/auth"
	"github.com/yinkun-ui/yinkun/internal/logging"
	"github.com/yinkun-ui/yinkun/pkg/types"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Open storage, load the stored configurations and serve the HTTP API until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}

			closer, err := logging.Setup(cfg.Log)
			if err != nil {
				return userError(err)
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var lc net.ListenConfig
			ln, err := lc.Listen(ctx, "tcp", cfg.Server.Addr)
			if err != nil {
				return sysError(fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err))
			}
			if err := serve(ctx, cfg, slog.Default(), ln); err != nil {
				return sysError(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// serve runs the API on ln until ctx is canceled, then closes storage.
func serve(ctx context.Context, cfg types.Config, log *slog.Logger, ln net.Listener) (err error) {
	log.Info("starting yinkun",
		slog.String("backend", cfg.Backend),
		slog.String("data_dir", cfg.DataDir),
		slog.String("version", api.Version))

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		ln.Close()
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			err = multierror.Append(err, cerr).ErrorOrNil()
		}
	}()

	if !cfg.Auth.AuthEnabled() {
		log.Warn("no auth credentials configured; protected routes will reject every request")
	}

	mw := auth.NewMiddleware(auth.NewVerifier(cfg.Auth), log)
	srv := api.NewServer(st.cards, st.dashboard, mw, cfg.Server, log)
	return srv.Serve(ctx, ln)
}
