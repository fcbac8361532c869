package api

import "net/http"

// RegisterRoutes registers all API routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/yinkun_ui", s.handleStatus)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.Handle("GET /api/yinkun_ui/card_config", s.protected(s.handleGetCardConfig))
	mux.Handle("POST /api/yinkun_ui/card_config", s.protected(s.handleUpsertCardConfig))

	if s.dashboard != nil {
		mux.Handle("GET /api/storage", s.storageRoute(s.handleGetStorage))
		mux.Handle("POST /api/storage", s.storageRoute(s.handleReplaceStorage))
	}
}

func (s *Server) protected(h http.HandlerFunc) http.Handler {
	if s.auth == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
		})
	}
	return s.auth.RequireAuth(h)
}

// storageRoute guards the dashboard routes only when server.storage_auth is
// set; they are open by default.
func (s *Server) storageRoute(h http.HandlerFunc) http.Handler {
	if s.cfg.StorageAuth {
		return s.protected(h)
	}
	return h
}
