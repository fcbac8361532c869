package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yinkun-ui/yinkun/pkg/types"
)

// Error messages returned in {"error": ...} bodies.
const (
	msgUnauthorized = "unauthorized"
	msgInvalidJSON  = "invalid JSON body"
	msgBodyTooLarge = "request body too large"
	msgInternal     = "internal server error"
)

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": msg} with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps a store error to a response. Validation errors are
// the caller's fault and become 400 with their message; everything else is
// logged and hidden behind a 500.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Message)
		return
	}
	s.log.ErrorContext(r.Context(), "request failed",
		slog.String("request_id", RequestIDFromContext(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	writeError(w, http.StatusInternalServerError, msgInternal)
}

// decodeBody decodes a JSON request body capped at the configured size.
// It reports false after writing a 400 or 413 response.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request) (any, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	var body any
	if err := types.DecodeJSON(r.Body, &body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return nil, false
	}
	return body, true
}
