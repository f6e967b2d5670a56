package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"sso-broker/internal/shared/errors"
	"sso-broker/internal/shared/response"
)

// AllowMethods answers requests with any other method with a JSON 405 and an
// Allow header. GET also admits HEAD.
func AllowMethods(methods ...string) func(http.Handler) http.Handler {
	allowed := slices.Clone(methods)
	if slices.Contains(allowed, http.MethodGet) && !slices.Contains(allowed, http.MethodHead) {
		allowed = append(allowed, http.MethodHead)
	}
	allowHeader := strings.Join(allowed, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(allowed, r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Allow", allowHeader)
			response.Error(w, r, slog.With("middleware", "methods"), errors.MethodNotAllowed(r.Method))
		})
	}
}
