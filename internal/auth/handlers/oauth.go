package handlers

import (
	"log/slog"
	"net/http"

	"sso-broker/internal/auth"
	"sso-broker/internal/shared/cookies"
	"sso-broker/internal/shared/response"
)

type AuthURLResponse struct {
	URL string `json:"url"`
}

// OAuthHandler serves the initiate and callback endpoints of every provider.
// The provider id comes from the {provider} path segment.
type OAuthHandler struct {
	broker     *auth.Broker
	deliveries *auth.Deliveries
	cookies    cookies.Settings
}

func NewOAuthHandler(broker *auth.Broker, deliveries *auth.Deliveries, cookieSettings cookies.Settings) *OAuthHandler {
	return &OAuthHandler{
		broker:     broker,
		deliveries: deliveries,
		cookies:    cookieSettings,
	}
}

// HandleURL returns the authorization URL as JSON for front ends that open
// the provider page themselves.
func (h *OAuthHandler) HandleURL(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	logger := slog.With("handler", "oauth_url", "provider", provider)

	authURL, err := h.broker.Initiate(r.Context(), provider)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	logger.Debug("Issued authorization URL")
	response.Success(w, http.StatusOK, AuthURLResponse{URL: authURL})
}

// HandleAuth redirects the browser to the provider's consent page.
func (h *OAuthHandler) HandleAuth(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	logger := slog.With(
		"handler", "oauth_init",
		"provider", provider,
	)

	authURL, err := h.broker.Initiate(r.Context(), provider)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	logger.Info("Initiating OAuth flow",
		"user_agent", r.UserAgent(),
		"remote_addr", r.RemoteAddr)
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")
	errorParam := query.Get("error")

	delivery, mode := h.deliveries.Select(query.Get("format"))

	logger := slog.With(
		"handler", "oauth_callback",
		"provider", provider,
		"delivery", mode,
		"remote_addr", r.RemoteAddr,
		"has_code", code != "",
		"has_state", state != "",
	)

	if errorParam != "" {
		logger.Warn("OAuth authorization denied",
			"oauth_error", errorParam,
			"error_description", query.Get("error_description"))
		delivery.Failure(w, r, h.broker.Abort(r.Context(), provider, state, errorParam))
		return
	}

	result, err := h.broker.Complete(r.Context(), provider, code, state)
	if err != nil {
		delivery.Failure(w, r, err)
		return
	}

	cookies.SetAuthCookie(w, h.cookies, result.Token)
	delivery.Success(w, r, result)
	result.MarkDelivered()
}
