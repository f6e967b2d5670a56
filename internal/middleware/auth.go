package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"sso-broker/internal/auth"
	"sso-broker/internal/shared/errors"
	"sso-broker/internal/shared/response"
)

type contextKey string

const ClaimsContextKey contextKey = "session_claims"

// SessionVerifier is satisfied by *auth.Broker.
type SessionVerifier interface {
	VerifySession(token string) (*auth.Claims, error)
}

// SessionMiddleware authenticates requests with the session token carried in
// the Authorization bearer header. The session cookie is not accepted here.
func SessionMiddleware(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := slog.With("middleware", "session")
			logger.Debug("Processing session authentication", "path", r.URL.Path)

			token, err := bearerToken(r)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				response.Error(w, r, logger, err)
				return
			}

			claims, err := verifier.VerifySession(token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				response.Error(w, r, logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			logger.Debug("Session authentication successful",
				"provider", claims.Provider,
				"subject", claims.Subject)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.Unauthorized("authorization header required")
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.Unauthorized("authorization header must use the Bearer scheme")
	}

	return strings.TrimSpace(token), nil
}

// GetClaimsFromContext returns the claims stored by SessionMiddleware.
func GetClaimsFromContext(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(ClaimsContextKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
