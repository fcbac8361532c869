// Package auth verifies bearer tokens for the card configuration API.
// Tokens are either configured static long-lived tokens or HS256 JWTs
// signed with the configured secret.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yinkun-ui/yinkun/pkg/types"
)

// Claims describes the authenticated caller.
type Claims struct {
	Subject string
	Static  bool
}

// Verification errors.
var (
	ErrNoCredentials = errors.New("no credentials configured")
	ErrEmptyToken    = errors.New("token cannot be empty")
	ErrInvalidToken  = errors.New("invalid token")
)

// Verifier checks bearer tokens.
type Verifier struct {
	secret []byte
	issuer string
	tokens [][]byte
}

// NewVerifier returns a Verifier for cfg. A Verifier with no configured
// credentials rejects every token.
func NewVerifier(cfg types.AuthConfig) *Verifier {
	v := &Verifier{issuer: cfg.JWTIssuer}
	if cfg.JWTSecret != "" {
		v.secret = []byte(cfg.JWTSecret)
	}
	for _, tok := range cfg.Tokens {
		if tok = strings.TrimSpace(tok); tok != "" {
			v.tokens = append(v.tokens, []byte(tok))
		}
	}
	return v
}

// VerifyToken verifies tokenString and returns the caller's claims.
func (v *Verifier) VerifyToken(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrEmptyToken
	}
	if v.secret == nil && len(v.tokens) == 0 {
		return nil, ErrNoCredentials
	}

	for i, tok := range v.tokens {
		if subtle.ConstantTimeCompare([]byte(tokenString), tok) == 1 {
			return &Claims{Subject: fmt.Sprintf("static-token-%d", i), Static: true}, nil
		}
	}

	if v.secret == nil {
		return nil, ErrInvalidToken
	}
	return v.verifyHS256Token(tokenString)
}

// verifyHS256Token verifies a JWT signed with HS256. Expiry is enforced when
// present; the issuer is checked when one is configured.
func (v *Verifier) verifyHS256Token(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	sub := claims.Subject
	if sub == "" {
		sub = claims.Issuer
	}
	return &Claims{Subject: sub}, nil
}
