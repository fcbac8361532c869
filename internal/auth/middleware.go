package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const claimsKey contextKey = "claims"

// Middleware enforces bearer authentication on wrapped handlers.
type Middleware struct {
	verifier *Verifier
	log      *slog.Logger
}

// NewMiddleware returns a Middleware using verifier.
func NewMiddleware(verifier *Verifier, log *slog.Logger) *Middleware {
	if log == nil {
		log = slog.Default()
	}
	return &Middleware{verifier: verifier, log: log}
}

// RequireAuth rejects requests without a valid bearer token with 401 and
// stores the verified claims in the request context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r)
		if err != nil {
			writeUnauthorized(w)
			return
		}

		claims, err := m.verifier.VerifyToken(token)
		if err != nil {
			level := slog.LevelDebug
			if errors.Is(err, ErrNoCredentials) {
				level = slog.LevelWarn
			}
			m.log.Log(r.Context(), level, "rejected bearer token",
				slog.String("path", r.URL.Path),
				slog.Any("error", err))
			writeUnauthorized(w)
			return
		}

		m.log.DebugContext(r.Context(), "authenticated",
			slog.String("path", r.URL.Path),
			slog.String("subject", claims.Subject))
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims stored by RequireAuth, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}

// extractBearerToken extracts the token from the Authorization header.
func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing Authorization header")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("invalid Authorization header format")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="yinkun"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
