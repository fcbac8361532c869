package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/yinkun-ui/yinkun/internal/auth"
	"github.com/yinkun-ui/yinkun/internal/blobstore"
	"github.com/yinkun-ui/yinkun/internal/cardconfig"
	"github.com/yinkun-ui/yinkun/pkg/types"
)

// Version is reported by the status endpoint.
const Version = "1.0.0"

const shutdownTimeout = 30 * time.Second

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	cards      *cardconfig.Store
	dashboard  *blobstore.Store
	auth       *auth.Middleware
	cfg        types.ServerConfig
	log        *slog.Logger
	now        func() time.Time
}

// NewServer returns a Server for the given stores. dashboard may be nil, in
// which case the /api/storage routes are not registered.
func NewServer(cards *cardconfig.Store, dashboard *blobstore.Store, authMiddleware *auth.Middleware, cfg types.ServerConfig, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = types.DefaultMaxBodyBytes
	}
	return &Server{
		cards:     cards,
		dashboard: dashboard,
		auth:      authMiddleware,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Handler returns the root handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.withRequestLog(mux)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully. Requests in flight at cancellation run to completion; their
// contexts do not inherit ctx's cancellation.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", slog.String("addr", ln.Addr().String()))
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
		return s.Stop(context.WithoutCancel(ctx))
	}
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = types.DefaultAddr
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}
