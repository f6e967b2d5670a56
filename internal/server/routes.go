package server

import (
	"log/slog"
	"net/http"

	"sso-broker/internal/auth"
	authHandlers "sso-broker/internal/auth/handlers"
	"sso-broker/internal/middleware"
	serverHandlers "sso-broker/internal/server/handlers"
	"sso-broker/internal/shared/cookies"
)

type Routes struct {
	broker      *auth.Broker
	deliveries  *auth.Deliveries
	states      auth.StateStore
	cookies     cookies.Settings
	cors        *middleware.CORSMiddleware
	rateLimiter *middleware.RateLimiter
}

func NewRoutes(
	broker *auth.Broker,
	deliveries *auth.Deliveries,
	states auth.StateStore,
	cookieSettings cookies.Settings,
	cors *middleware.CORSMiddleware,
	rateLimiter *middleware.RateLimiter,
) *Routes {
	return &Routes{
		broker:      broker,
		deliveries:  deliveries,
		states:      states,
		cookies:     cookieSettings,
		cors:        cors,
		rateLimiter: rateLimiter,
	}
}

// Setup builds the complete handler. It does not depend on a listening
// server and can be mounted as is by a function runtime.
func (r *Routes) Setup() http.Handler {
	logger := slog.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.states)
	oauthHandler := authHandlers.NewOAuthHandler(r.broker, r.deliveries, r.cookies)
	meHandler := authHandlers.NewMeHandler()
	logoutHandler := authHandlers.NewLogoutHandler(r.cookies)

	limited := func(h http.HandlerFunc) http.Handler {
		if r.rateLimiter == nil {
			return h
		}
		return r.rateLimiter.Middleware(h)
	}

	// Patterns carry no method so that other methods get a JSON 405
	// instead of the mux's plain text one
	get := middleware.AllowMethods(http.MethodGet)

	// Public endpoints
	mux.Handle("/api/health", get(healthHandler))

	// Protected endpoints
	mux.Handle("/api/me", get(middleware.SessionMiddleware(r.broker)(meHandler)))

	// OAuth endpoints
	mux.Handle("/auth/{provider}", get(limited(oauthHandler.HandleAuth)))
	mux.Handle("/auth/{provider}/url", get(limited(oauthHandler.HandleURL)))
	mux.Handle("/auth/{provider}/callback", get(limited(oauthHandler.HandleCallback)))
	mux.Handle("/auth/logout", middleware.AllowMethods(http.MethodGet, http.MethodPost)(logoutHandler))

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/health"},
		"protected_endpoints", []string{"/api/me"},
		"auth_endpoints", []string{"/auth/{provider}", "/auth/{provider}/url", "/auth/{provider}/callback", "/auth/logout"},
	)

	if r.cors == nil {
		return mux
	}
	return r.cors.Middleware(mux)
}
